package domain

import "time"

// ActiveTimer is the running timer of a user. At most one exists per user.
type ActiveTimer struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	ProjectID   string    `json:"project_id" bson:"project_id"`
	TaskID      *string   `json:"task_id,omitempty" bson:"task_id,omitempty"`
	Description *string   `json:"description,omitempty" bson:"description,omitempty"`
	StartTime   time.Time `json:"start_time" bson:"start_time"`
}

// Elapsed reports how long the timer has been running at now.
func (t *ActiveTimer) Elapsed(now time.Time) time.Duration {
	if now.Before(t.StartTime) {
		return 0
	}
	return now.Sub(t.StartTime)
}

// Equal reports whether two timers describe the same record state.
func (t *ActiveTimer) Equal(o *ActiveTimer) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.ID == o.ID &&
		t.UserID == o.UserID &&
		t.ProjectID == o.ProjectID &&
		equalStr(t.TaskID, o.TaskID) &&
		equalStr(t.Description, o.Description) &&
		t.StartTime.Equal(o.StartTime)
}

// Clone returns a deep copy so callers cannot alias shared state.
func (t *ActiveTimer) Clone() *ActiveTimer {
	if t == nil {
		return nil
	}
	c := *t
	c.TaskID = cloneStr(t.TaskID)
	c.Description = cloneStr(t.Description)
	return &c
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
