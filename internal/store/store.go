package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/disposal-planner/internal/model"
)

// ErrNotFound is returned (wrapped) when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotActive is returned (wrapped) by conditional updates when the entry
// exists but is already completed or cancelled.
var ErrNotActive = errors.New("entry is completed or cancelled")

// ScheduleFilter controls filtering for disposal schedule queries. Every
// field is optional; set fields combine with AND.
type ScheduleFilter struct {
	Status          *model.Status
	ExcludeStatuses []model.Status
	AssignedTo      *string
	WasteItemID     *string
	HazardLevel     *string
	Category        *string

	// From is an inclusive lower bound on scheduled_date.
	From *time.Time
	// Before is an exclusive upper bound on scheduled_date.
	Before *time.Time

	// HasReminders restricts to entries with at least one reminder date.
	HasReminders bool

	Limit int
}

// Completion carries the fields written when an entry is marked completed.
type Completion struct {
	ActualDate  time.Time
	CompletedAt time.Time
	CompletedBy *string

	// Notes overwrites the entry's notes when set.
	Notes model.Optional[*string]
}

// Store defines the persistence interface for disposal schedules and the
// read-only reference entities they join against.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	// === Disposal schedules ===

	CreateSchedule(ctx context.Context, s model.DisposalSchedule) error
	GetSchedule(ctx context.Context, id string) (*model.DisposalSchedule, error)
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]model.DisposalSchedule, error)
	UpdateSchedule(ctx context.Context, id string, patch model.SchedulePatch, updatedAt time.Time) error
	UpdateActiveSchedule(ctx context.Context, id string, patch model.SchedulePatch, updatedAt time.Time) error
	CompleteSchedule(ctx context.Context, id string, c Completion) error
	DeleteSchedule(ctx context.Context, id string) error
	MarkOverdue(ctx context.Context, before, now time.Time) (int64, error)

	// === Reference data ===

	CreateWasteTemplate(ctx context.Context, t model.WasteTemplate) error
	CreateWasteItem(ctx context.Context, item model.WasteItem) error
	CreateUser(ctx context.Context, u model.User) error
	GetWasteItem(ctx context.Context, id string) (*model.WasteItem, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ListWasteItems(ctx context.Context) ([]model.WasteItem, error)
}
