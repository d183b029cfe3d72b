package domain

import (
	"math"
	"time"
)

// TimeWindow is a closed interval of tracked time.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Normalize truncates both bounds to Precision, so a duration derived from the
// window matches one recomputed from the stored row.
func (w TimeWindow) Normalize() TimeWindow {
	return TimeWindow{Start: w.Start.Truncate(Precision), End: w.End.Truncate(Precision)}
}

// Validate enforces that both bounds are set and End is strictly after Start.
func (w TimeWindow) Validate() error {
	if w.Start.IsZero() {
		return &ValidationError{Field: "start_time", Reason: "is required"}
	}
	if w.End.IsZero() {
		return &ValidationError{Field: "end_time", Reason: "is required"}
	}
	if !w.End.After(w.Start) {
		return &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}
	return nil
}

// RoundedSeconds is the window length rounded to the nearest whole second.
func (w TimeWindow) RoundedSeconds() int64 {
	return int64(math.Round(w.End.Sub(w.Start).Seconds()))
}

// DurationSeconds is the stored duration: max(1, round(end - start)).
func (w TimeWindow) DurationSeconds() int64 {
	return DurationSeconds(w.Start, w.End)
}

// DurationSeconds computes max(1, round(end - start)) in seconds.
func DurationSeconds(start, end time.Time) int64 {
	d := int64(math.Round(end.Sub(start).Seconds()))
	if d < 1 {
		return 1
	}
	return d
}

// TimeEntry is a completed, historical interval of tracked time.
type TimeEntry struct {
	ID              string    `json:"id" bson:"_id"`
	UserID          string    `json:"user_id" bson:"user_id"`
	ProjectID       string    `json:"project_id" bson:"project_id"`
	TaskID          *string   `json:"task_id,omitempty" bson:"task_id,omitempty"`
	Description     *string   `json:"description,omitempty" bson:"description,omitempty"`
	StartTime       time.Time `json:"start_time" bson:"start_time"`
	EndTime         time.Time `json:"end_time" bson:"end_time"`
	DurationSeconds int64     `json:"duration_seconds" bson:"duration_seconds"`
	Billable        *bool     `json:"billable,omitempty" bson:"billable,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// IsBillable treats an unset flag as billable.
func (e *TimeEntry) IsBillable() bool {
	return e.Billable == nil || *e.Billable
}

// Window returns the entry's time window.
func (e *TimeEntry) Window() TimeWindow {
	return TimeWindow{Start: e.StartTime, End: e.EndTime}
}

// Clone returns a deep copy.
func (e TimeEntry) Clone() TimeEntry {
	e.TaskID = cloneStr(e.TaskID)
	e.Description = cloneStr(e.Description)
	if e.Billable != nil {
		b := *e.Billable
		e.Billable = &b
	}
	return e
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s, or nil for the empty string.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
