package schedule

import (
	"errors"
	"fmt"

	"github.com/nhle/disposal-planner/internal/store"
)

// ErrInvalidTransition is wrapped by a ValidationError when a lifecycle
// operation targets an entry that is already completed or cancelled.
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports an addressed entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }

// ReferentialError reports a reference to a waste item or user that does
// not resolve.
type ReferentialError struct {
	Field string
	ID    string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%s references unknown id %s", e.Field, e.ID)
}

// InfrastructureError wraps a backing store failure.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func transitionError(id string) error {
	return &ValidationError{
		Field:   "status",
		Message: fmt.Sprintf("schedule %s is already completed or cancelled", id),
		Err:     ErrInvalidTransition,
	}
}

// classify maps a store error for schedule id into the service taxonomy.
func classify(op, id string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &NotFoundError{Entity: "schedule", ID: id}
	case errors.Is(err, store.ErrNotActive):
		return transitionError(id)
	default:
		return &InfrastructureError{Op: op, Err: err}
	}
}
