package model

import "time"

// Status is the lifecycle state of a disposal schedule entry.
type Status string

// Disposal schedule status constants.
const (
	StatusScheduled   Status = "scheduled"
	StatusRescheduled Status = "rescheduled"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusOverdue     Status = "overdue"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{
	StatusScheduled,
	StatusRescheduled,
	StatusOverdue,
	StatusCompleted,
	StatusCancelled,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
// Terminal entries are also excluded from conflict counting.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority ranks how urgently a disposal must happen.
type Priority string

// Priority constants.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// RecurrencePattern is the cadence at which a completed entry spawns its successor.
type RecurrencePattern string

// Recurrence pattern constants.
const (
	RecurrenceDaily     RecurrencePattern = "daily"
	RecurrenceWeekly    RecurrencePattern = "weekly"
	RecurrenceBiweekly  RecurrencePattern = "biweekly"
	RecurrenceMonthly   RecurrencePattern = "monthly"
	RecurrenceQuarterly RecurrencePattern = "quarterly"
	RecurrenceYearly    RecurrencePattern = "yearly"
)

// RecurrencePatterns lists every supported pattern.
var RecurrencePatterns = []RecurrencePattern{
	RecurrenceDaily,
	RecurrenceWeekly,
	RecurrenceBiweekly,
	RecurrenceMonthly,
	RecurrenceQuarterly,
	RecurrenceYearly,
}

// Valid reports whether p is a supported pattern.
func (p RecurrencePattern) Valid() bool {
	for _, v := range RecurrencePatterns {
		if p == v {
			return true
		}
	}
	return false
}

// HazardCritical is the template hazard level flagged by conflict checks.
const HazardCritical = "critical"

// DisposalSchedule is one planned or completed disposal action for a waste item.
type DisposalSchedule struct {
	// ID is the unique identifier assigned at creation.
	ID string `json:"id"`

	// WasteItemID references the waste item being disposed of.
	WasteItemID string `json:"waste_item_id"`

	// ScheduledDate is when the disposal is planned.
	ScheduledDate time.Time `json:"scheduled_date"`

	// ActualDate is when the disposal actually happened. Set on completion.
	ActualDate *time.Time `json:"actual_date,omitempty"`

	// CompletedAt is the wall-clock time the entry was marked completed.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// CompletedBy references the user who completed the disposal.
	CompletedBy *string `json:"completed_by,omitempty"`

	// AssignedTo references the responsible user, if any.
	AssignedTo *string `json:"assigned_to,omitempty"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`

	IsRecurring       bool               `json:"is_recurring"`
	RecurrencePattern *RecurrencePattern `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate *time.Time         `json:"recurrence_end_date,omitempty"`

	// ReminderDates are stored for an external notifier; never nil once persisted.
	ReminderDates []time.Time `json:"reminder_dates"`

	Notes          *string  `json:"notes,omitempty"`
	DisposalMethod *string  `json:"disposal_method,omitempty"`
	Quantity       *float64 `json:"quantity,omitempty"`
	Unit           *string  `json:"unit,omitempty"`

	CreatedBy *string   `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Display fields populated by read-joins; never written.
	WasteName       string `json:"waste_name,omitempty"`
	HazardLevel     string `json:"hazard_level,omitempty"`
	Category        string `json:"category,omitempty"`
	Color           string `json:"color,omitempty"`
	Icon            string `json:"icon,omitempty"`
	AssignedToName  string `json:"assigned_to_name,omitempty"`
	CreatedByName   string `json:"created_by_name,omitempty"`
	CompletedByName string `json:"completed_by_name,omitempty"`
}

// IsCritical reports whether the entry's waste template is critical-hazard.
func (d DisposalSchedule) IsCritical() bool {
	return d.HazardLevel == HazardCritical
}

// Reminder is a single due reminder for a disposal entry, handed to a notifier.
type Reminder struct {
	ScheduleID    string    `json:"schedule_id"`
	RemindAt      time.Time `json:"remind_at"`
	ScheduledDate time.Time `json:"scheduled_date"`
	WasteName     string    `json:"waste_name"`
	HazardLevel   string    `json:"hazard_level"`
	Priority      Priority  `json:"priority"`
	AssignedTo    string    `json:"assigned_to,omitempty"`
	AssigneeEmail string    `json:"assignee_email,omitempty"`
}
