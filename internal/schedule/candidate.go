package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/disposal-planner/internal/model"
)

// Candidate is a proposed schedule entry before validation and persistence.
// Zero values of optional fields fall back to the documented defaults.
type Candidate struct {
	WasteItemID       string                   `json:"waste_item_id" yaml:"waste_item_id" validate:"required"`
	ScheduledDate     *time.Time               `json:"scheduled_date" yaml:"scheduled_date" validate:"required"`
	AssignedTo        *string                  `json:"assigned_to,omitempty" yaml:"assigned_to" validate:"omitempty,min=1"`
	Status            model.Status             `json:"status,omitempty" yaml:"status" validate:"omitempty,oneof=scheduled rescheduled overdue cancelled"`
	Priority          model.Priority           `json:"priority,omitempty" yaml:"priority" validate:"omitempty,oneof=low medium high critical"`
	IsRecurring       bool                     `json:"is_recurring,omitempty" yaml:"is_recurring"`
	RecurrencePattern *model.RecurrencePattern `json:"recurrence_pattern,omitempty" yaml:"recurrence_pattern" validate:"omitempty,oneof=daily weekly biweekly monthly quarterly yearly"`
	RecurrenceEndDate *time.Time               `json:"recurrence_end_date,omitempty" yaml:"recurrence_end_date"`
	ReminderDates     []time.Time              `json:"reminder_dates,omitempty" yaml:"reminder_dates"`
	Notes             *string                  `json:"notes,omitempty" yaml:"notes"`
	DisposalMethod    *string                  `json:"disposal_method,omitempty" yaml:"disposal_method"`
	Quantity          *float64                 `json:"quantity,omitempty" yaml:"quantity" validate:"omitempty,gte=0"`
	Unit              *string                  `json:"unit,omitempty" yaml:"unit"`
	CreatedBy         *string                  `json:"created_by,omitempty" yaml:"created_by" validate:"omitempty,min=1"`

	// Row is the 1-based source line for tabular imports, 0 otherwise.
	Row int `json:"-" yaml:"-"`

	rejected error
}

// RejectedCandidate returns a candidate that always fails validation with
// err. Decoders use it to keep an undecodable row at its batch index.
func RejectedCandidate(err error) Candidate {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		err = &ValidationError{Message: err.Error(), Err: err}
	}
	return Candidate{rejected: err}
}

// DecodeCandidate parses one JSON object into a candidate. Malformed input
// yields a rejected candidate rather than an error.
func DecodeCandidate(data []byte) Candidate {
	var c Candidate
	if err := json.Unmarshal(data, &c); err != nil {
		return RejectedCandidate(decodeError(err))
	}
	return c
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "candidate"
		}
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			Err:     err,
		}
	}
	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return &ValidationError{Message: "malformed timestamp " + timeErr.Value, Err: err}
	}
	return &ValidationError{Message: err.Error(), Err: err}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate checks required fields, enum values and the recurrence invariant.
func (c Candidate) validate(v *validator.Validate) error {
	if c.rejected != nil {
		return c.rejected
	}
	if c.ScheduledDate != nil && c.ScheduledDate.IsZero() {
		return invalid("scheduled_date", "is required")
	}
	if err := v.Struct(c); err != nil {
		return fromValidator(err)
	}
	return checkRecurrence(c.IsRecurring, c.RecurrencePattern)
}

// checkRecurrence enforces that a pattern is present exactly when the entry
// recurs.
func checkRecurrence(recurring bool, p *model.RecurrencePattern) error {
	if recurring && p == nil {
		return invalid("recurrence_pattern", "is required when is_recurring is true")
	}
	if !recurring && p != nil {
		return invalid("recurrence_pattern", "must be empty unless is_recurring is true")
	}
	return nil
}

// fromValidator reports the first failing field of a validator error.
func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error(), Err: err}
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "oneof":
		msg = fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		msg = fmt.Sprintf("must be at least %s", fe.Param())
	case "min":
		msg = "must not be empty"
	default:
		msg = fmt.Sprintf("failed %s check", fe.Tag())
	}
	return &ValidationError{Field: fe.Field(), Message: msg, Err: err}
}

// toSchedule builds the row to persist, applying defaults.
func (c Candidate) toSchedule(id string, now time.Time) model.DisposalSchedule {
	d := model.DisposalSchedule{
		ID:                id,
		WasteItemID:       c.WasteItemID,
		ScheduledDate:     *c.ScheduledDate,
		AssignedTo:        c.AssignedTo,
		Status:            c.Status,
		Priority:          c.Priority,
		IsRecurring:       c.IsRecurring,
		RecurrencePattern: c.RecurrencePattern,
		RecurrenceEndDate: c.RecurrenceEndDate,
		ReminderDates:     c.ReminderDates,
		Notes:             c.Notes,
		DisposalMethod:    c.DisposalMethod,
		Quantity:          c.Quantity,
		Unit:              c.Unit,
		CreatedBy:         c.CreatedBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if d.Status == "" {
		d.Status = model.StatusScheduled
	}
	if d.Priority == "" {
		d.Priority = model.PriorityMedium
	}
	if d.ReminderDates == nil {
		d.ReminderDates = []time.Time{}
	}
	if !d.IsRecurring {
		d.RecurrenceEndDate = nil
	}
	return d
}
