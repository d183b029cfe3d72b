package ports

import (
	"time"
)

// StartTimerInput carries the optional selections for a new timer.
type StartTimerInput struct {
	ProjectID   string
	TaskID      *string
	Description *string
}

// EntryInput is the full replacement payload for a manual entry.
type EntryInput struct {
	Start       time.Time
	End         time.Time
	ProjectID   string
	TaskID      *string
	Description *string
	Billable    *bool
}

// BatchRow is one manually specified entry in a batch submission.
type BatchRow struct {
	ClientID    string
	ProjectID   string
	TaskID      *string
	Start       time.Time
	End         time.Time
	Description *string
	Billable    *bool
}
