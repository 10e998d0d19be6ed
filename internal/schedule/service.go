// Package schedule is the disposal schedule engine: validated creation,
// lifecycle transitions, recurring successors, conflict checks and batch
// import over a Repository.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/recurrence"
	"github.com/nhle/disposal-planner/internal/store"
)

// Repository is the subset of store.Store the engine needs.
type Repository interface {
	Ping(ctx context.Context) error
	CreateSchedule(ctx context.Context, s model.DisposalSchedule) error
	GetSchedule(ctx context.Context, id string) (*model.DisposalSchedule, error)
	ListSchedules(ctx context.Context, filter store.ScheduleFilter) ([]model.DisposalSchedule, error)
	UpdateSchedule(ctx context.Context, id string, patch model.SchedulePatch, updatedAt time.Time) error
	UpdateActiveSchedule(ctx context.Context, id string, patch model.SchedulePatch, updatedAt time.Time) error
	CompleteSchedule(ctx context.Context, id string, c store.Completion) error
	DeleteSchedule(ctx context.Context, id string) error
	MarkOverdue(ctx context.Context, before, now time.Time) (int64, error)
	GetWasteItem(ctx context.Context, id string) (*model.WasteItem, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// Service implements the disposal schedule operations.
type Service struct {
	repo      Repository
	validate  *validator.Validate
	loc       *time.Location
	maxPerDay atomic.Int64
	log       zerolog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service using the timezone and per-day ceiling of cfg.
func NewService(repo Repository, cfg model.ScheduleConfig, opts ...Option) (*Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolving schedule timezone: %w", err)
	}

	s := &Service{
		repo:     repo,
		validate: newValidator(),
		loc:      loc,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	s.SetMaxPerDay(cfg.MaxPerDay)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Location returns the timezone used for calendar-day arithmetic.
func (s *Service) Location() *time.Location { return s.loc }

// MaxPerDay returns the configured per-day conflict ceiling.
func (s *Service) MaxPerDay() int { return int(s.maxPerDay.Load()) }

// SetMaxPerDay replaces the per-day ceiling. Non-positive values are ignored.
// Safe for concurrent use.
func (s *Service) SetMaxPerDay(n int) {
	if n > 0 {
		s.maxPerDay.Store(int64(n))
	}
}

// Create validates and persists a candidate, returning the enriched entry.
func (s *Service) Create(ctx context.Context, c Candidate) (*model.DisposalSchedule, error) {
	if err := c.validate(s.validate); err != nil {
		return nil, err
	}
	if err := s.checkWasteItem(ctx, c.WasteItemID); err != nil {
		return nil, err
	}
	if err := s.checkUser(ctx, "assigned_to", c.AssignedTo); err != nil {
		return nil, err
	}
	if err := s.checkUser(ctx, "created_by", c.CreatedBy); err != nil {
		return nil, err
	}

	d := c.toSchedule(uuid.New().String(), s.now())
	if err := s.repo.CreateSchedule(ctx, d); err != nil {
		return nil, &InfrastructureError{Op: "create schedule", Err: err}
	}
	return s.Get(ctx, d.ID)
}

// Get returns a single enriched entry.
func (s *Service) Get(ctx context.Context, id string) (*model.DisposalSchedule, error) {
	d, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, classify("get schedule", id, err)
	}
	return d, nil
}

// List returns entries matching filter in ascending scheduled-date order.
func (s *Service) List(ctx context.Context, filter store.ScheduleFilter) ([]model.DisposalSchedule, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, invalid("status", "unknown status %q", *filter.Status)
	}
	out, err := s.repo.ListSchedules(ctx, filter)
	if err != nil {
		return nil, &InfrastructureError{Op: "list schedules", Err: err}
	}
	return out, nil
}

// Update applies the set fields of patch to an entry and returns the result.
// Completion is not reachable through Update; use Complete. A completed or
// cancelled entry keeps its status.
func (s *Service) Update(ctx context.Context, id string, patch model.SchedulePatch) (*model.DisposalSchedule, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Status.Set && current.Status.Terminal() {
		return nil, transitionError(id)
	}

	if patch.IsRecurring.Set && !patch.IsRecurring.Value {
		if !patch.RecurrencePattern.Set {
			patch.RecurrencePattern = model.Null[*model.RecurrencePattern]()
		}
		if !patch.RecurrenceEndDate.Set {
			patch.RecurrenceEndDate = model.Null[*time.Time]()
		}
	}
	merged := patch.Apply(*current)
	if err := checkRecurrence(merged.IsRecurring, merged.RecurrencePattern); err != nil {
		return nil, err
	}

	if patch.WasteItemID.Set {
		if err := s.checkWasteItem(ctx, patch.WasteItemID.Value); err != nil {
			return nil, err
		}
	}
	if patch.AssignedTo.Set {
		if err := s.checkUser(ctx, "assigned_to", patch.AssignedTo.Value); err != nil {
			return nil, err
		}
	}

	write := s.repo.UpdateSchedule
	if patch.Status.Set {
		write = s.repo.UpdateActiveSchedule
	}
	if err := write(ctx, id, patch, s.now()); err != nil {
		return nil, classify("update schedule", id, err)
	}
	return s.Get(ctx, id)
}

func validatePatch(p model.SchedulePatch) error {
	if p.WasteItemID.Set && p.WasteItemID.Value == "" {
		return invalid("waste_item_id", "is required")
	}
	if p.ScheduledDate.Set && p.ScheduledDate.Value.IsZero() {
		return invalid("scheduled_date", "is required")
	}
	if p.Status.Set {
		if !p.Status.Value.Valid() {
			return invalid("status", "unknown status %q", p.Status.Value)
		}
		if p.Status.Value == model.StatusCompleted {
			return invalid("status", "use complete to mark an entry completed")
		}
	}
	if p.Priority.Set && !p.Priority.Value.Valid() {
		return invalid("priority", "unknown priority %q", p.Priority.Value)
	}
	if p.RecurrencePattern.Set && p.RecurrencePattern.Value != nil && !p.RecurrencePattern.Value.Valid() {
		return invalid("recurrence_pattern", "unknown pattern %q", *p.RecurrencePattern.Value)
	}
	if p.Quantity.Set && p.Quantity.Value != nil && *p.Quantity.Value < 0 {
		return invalid("quantity", "must be at least 0")
	}
	return nil
}

// Delete removes an entry permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteSchedule(ctx, id); err != nil {
		return classify("delete schedule", id, err)
	}
	s.log.Info().Str("schedule_id", id).Msg("schedule deleted")
	return nil
}

// CompleteOptions are the optional inputs to Complete.
type CompleteOptions struct {
	// ActualDate defaults to now.
	ActualDate *time.Time `json:"actual_date,omitempty"`
	// Notes overwrites the entry's notes when non-nil.
	Notes       *string `json:"notes,omitempty"`
	CompletedBy *string `json:"completed_by,omitempty"`
}

// CompletionResult is the outcome of Complete. NextOccurrenceDate is set
// whenever a successor was due; Successor is nil if creating it failed, in
// which case SuccessorError holds the cause.
type CompletionResult struct {
	Schedule           *model.DisposalSchedule
	NextOccurrenceDate *time.Time
	Successor          *model.DisposalSchedule
	SuccessorError     error
}

// Complete marks an entry completed and, for recurring entries whose next
// date is within the end bound, creates the successor. Completing an entry
// that is already completed or cancelled fails with ErrInvalidTransition.
// Successor creation is best effort and never undoes the completion.
func (s *Service) Complete(ctx context.Context, id string, opts CompleteOptions) (*CompletionResult, error) {
	if err := s.checkUser(ctx, "completed_by", opts.CompletedBy); err != nil {
		return nil, err
	}

	now := s.now()
	c := store.Completion{
		ActualDate:  now,
		CompletedAt: now,
		CompletedBy: opts.CompletedBy,
	}
	if opts.ActualDate != nil {
		c.ActualDate = *opts.ActualDate
	}
	if opts.Notes != nil {
		c.Notes = model.Some(opts.Notes)
	}

	if err := s.repo.CompleteSchedule(ctx, id, c); err != nil {
		return nil, classify("complete schedule", id, err)
	}

	done, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &CompletionResult{Schedule: done}

	next, due := s.nextOccurrence(*done)
	if !due {
		return result, nil
	}
	result.NextOccurrenceDate = &next

	successor, err := s.createSuccessor(ctx, *done, next)
	if err != nil {
		s.log.Error().Err(err).
			Str("schedule_id", id).
			Time("next_date", next).
			Msg("creating recurring successor failed")
		result.SuccessorError = err
		return result, nil
	}
	result.Successor = successor
	s.log.Info().
		Str("schedule_id", id).
		Str("successor_id", successor.ID).
		Time("next_date", next).
		Msg("recurring successor created")
	return result, nil
}

// nextOccurrence reports the successor date of d and whether one is due.
func (s *Service) nextOccurrence(d model.DisposalSchedule) (time.Time, bool) {
	if !d.IsRecurring || d.RecurrencePattern == nil {
		return time.Time{}, false
	}
	next, ok := recurrence.Next(d.ScheduledDate.In(s.loc), *d.RecurrencePattern)
	if !ok {
		return time.Time{}, false
	}
	if !recurrence.WithinBound(next, d.RecurrenceEndDate, s.loc) {
		return time.Time{}, false
	}
	return next, true
}

func (s *Service) createSuccessor(
	ctx context.Context,
	src model.DisposalSchedule,
	next time.Time,
) (*model.DisposalSchedule, error) {
	now := s.now()
	reminders := make([]time.Time, len(src.ReminderDates))
	copy(reminders, src.ReminderDates)

	succ := model.DisposalSchedule{
		ID:                uuid.New().String(),
		WasteItemID:       src.WasteItemID,
		ScheduledDate:     next,
		AssignedTo:        src.AssignedTo,
		Status:            model.StatusScheduled,
		Priority:          src.Priority,
		IsRecurring:       src.IsRecurring,
		RecurrencePattern: src.RecurrencePattern,
		RecurrenceEndDate: src.RecurrenceEndDate,
		ReminderDates:     reminders,
		Notes:             src.Notes,
		DisposalMethod:    src.DisposalMethod,
		Quantity:          src.Quantity,
		Unit:              src.Unit,
		CreatedBy:         src.CreatedBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.CreateSchedule(ctx, succ); err != nil {
		return nil, &InfrastructureError{Op: "create successor", Err: err}
	}
	return s.Get(ctx, succ.ID)
}

// RescheduleRequest moves an entry to a new date.
type RescheduleRequest struct {
	ScheduledDate time.Time                `json:"scheduled_date"`
	AssignedTo    model.Optional[*string] `json:"assigned_to"`
	Notes         model.Optional[*string] `json:"notes"`
}

// Reschedule moves a non-terminal entry to a new date and sets its status to
// rescheduled.
func (s *Service) Reschedule(ctx context.Context, id string, req RescheduleRequest) (*model.DisposalSchedule, error) {
	if req.ScheduledDate.IsZero() {
		return nil, invalid("scheduled_date", "is required")
	}
	if req.AssignedTo.Set {
		if err := s.checkUser(ctx, "assigned_to", req.AssignedTo.Value); err != nil {
			return nil, err
		}
	}

	patch := model.SchedulePatch{
		ScheduledDate: model.Some(req.ScheduledDate),
		Status:        model.Some(model.StatusRescheduled),
		AssignedTo:    req.AssignedTo,
		Notes:         req.Notes,
	}
	if err := s.repo.UpdateActiveSchedule(ctx, id, patch, s.now()); err != nil {
		return nil, classify("reschedule schedule", id, err)
	}
	return s.Get(ctx, id)
}

// Cancel marks a non-terminal entry cancelled, optionally replacing notes.
func (s *Service) Cancel(ctx context.Context, id string, notes *string) (*model.DisposalSchedule, error) {
	patch := model.SchedulePatch{Status: model.Some(model.StatusCancelled)}
	if notes != nil {
		patch.Notes = model.Some(notes)
	}
	if err := s.repo.UpdateActiveSchedule(ctx, id, patch, s.now()); err != nil {
		return nil, classify("cancel schedule", id, err)
	}
	return s.Get(ctx, id)
}

// MarkOverdue flags scheduled and rescheduled entries planned before the
// start of today as overdue and returns how many changed.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.repo.MarkOverdue(ctx, recurrence.StartOfDay(now, s.loc), now)
	if err != nil {
		return 0, &InfrastructureError{Op: "mark overdue", Err: err}
	}
	if n > 0 {
		s.log.Info().Int64("count", n).Msg("schedules marked overdue")
	}
	return n, nil
}

func (s *Service) checkWasteItem(ctx context.Context, id string) error {
	if _, err := s.repo.GetWasteItem(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &ReferentialError{Field: "waste_item_id", ID: id}
		}
		return &InfrastructureError{Op: "look up waste item", Err: err}
	}
	return nil
}

func (s *Service) checkUser(ctx context.Context, field string, id *string) error {
	if id == nil {
		return nil
	}
	if _, err := s.repo.GetUser(ctx, *id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &ReferentialError{Field: field, ID: *id}
		}
		return &InfrastructureError{Op: "look up user", Err: err}
	}
	return nil
}
