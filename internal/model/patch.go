package model

import (
	"encoding/json"
	"time"
)

// Optional marks whether a patch field was supplied at all. Use a pointer
// type parameter for nullable columns: Set with a nil Value clears the column,
// an unset Optional leaves it untouched.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a set Optional holding the zero value, i.e. an explicit clear
// when T is a pointer type.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// UnmarshalJSON is only invoked when the key is present in the document, so
// presence alone marks the field as set. A JSON null leaves Value at zero.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON encodes the held value, or null when unset.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// SchedulePatch describes a partial update of a DisposalSchedule.
type SchedulePatch struct {
	WasteItemID       Optional[string]             `json:"waste_item_id"`
	ScheduledDate     Optional[time.Time]          `json:"scheduled_date"`
	AssignedTo        Optional[*string]            `json:"assigned_to"`
	Status            Optional[Status]             `json:"status"`
	Priority          Optional[Priority]           `json:"priority"`
	IsRecurring       Optional[bool]               `json:"is_recurring"`
	RecurrencePattern Optional[*RecurrencePattern] `json:"recurrence_pattern"`
	RecurrenceEndDate Optional[*time.Time]         `json:"recurrence_end_date"`
	ReminderDates     Optional[[]time.Time]        `json:"reminder_dates"`
	Notes             Optional[*string]            `json:"notes"`
	DisposalMethod    Optional[*string]            `json:"disposal_method"`
	Quantity          Optional[*float64]           `json:"quantity"`
	Unit              Optional[*string]            `json:"unit"`
}

// Empty reports whether no field of the patch is set.
func (p SchedulePatch) Empty() bool {
	return !p.WasteItemID.Set && !p.ScheduledDate.Set && !p.AssignedTo.Set &&
		!p.Status.Set && !p.Priority.Set && !p.IsRecurring.Set &&
		!p.RecurrencePattern.Set && !p.RecurrenceEndDate.Set &&
		!p.ReminderDates.Set && !p.Notes.Set && !p.DisposalMethod.Set &&
		!p.Quantity.Set && !p.Unit.Set
}

// Apply returns a copy of d with every set field of p written over it.
func (p SchedulePatch) Apply(d DisposalSchedule) DisposalSchedule {
	if p.WasteItemID.Set {
		d.WasteItemID = p.WasteItemID.Value
	}
	if p.ScheduledDate.Set {
		d.ScheduledDate = p.ScheduledDate.Value
	}
	if p.AssignedTo.Set {
		d.AssignedTo = p.AssignedTo.Value
	}
	if p.Status.Set {
		d.Status = p.Status.Value
	}
	if p.Priority.Set {
		d.Priority = p.Priority.Value
	}
	if p.IsRecurring.Set {
		d.IsRecurring = p.IsRecurring.Value
	}
	if p.RecurrencePattern.Set {
		d.RecurrencePattern = p.RecurrencePattern.Value
	}
	if p.RecurrenceEndDate.Set {
		d.RecurrenceEndDate = p.RecurrenceEndDate.Value
	}
	if p.ReminderDates.Set {
		d.ReminderDates = p.ReminderDates.Value
	}
	if p.Notes.Set {
		d.Notes = p.Notes.Value
	}
	if p.DisposalMethod.Set {
		d.DisposalMethod = p.DisposalMethod.Value
	}
	if p.Quantity.Set {
		d.Quantity = p.Quantity.Value
	}
	if p.Unit.Set {
		d.Unit = p.Unit.Value
	}
	return d
}
