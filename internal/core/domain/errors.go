package domain

import (
	"errors"
	"fmt"
)

var ErrTimerRunning = errors.New("timer already running")
var ErrNoActiveTimer = errors.New("no active timer")
var ErrEntryNotFound = errors.New("time entry not found")
var ErrProjectNotFound = errors.New("project not found")
var ErrTaskNotFound = errors.New("task not found")
var ErrSessionClosed = errors.New("session closed")

// ErrValidation is the parent of every input rejection raised before a store call.
var ErrValidation = errors.New("validation failed")

var ErrTaskProjectMismatch = &ValidationError{Field: "task_id", Reason: "task does not belong to the selected project"}

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// BatchValidationError names the first batch row that failed validation.
// Row is 1-based to match what a user sees in a submitted list.
type BatchValidationError struct {
	Row int
	Err error
}

func (e *BatchValidationError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *BatchValidationError) Unwrap() error { return e.Err }
