package domain

import "time"

// Table names the record sets a change feed can be subscribed to.
type Table string

const (
	TableActiveTimers Table = "active_timers"
	TableTimeEntries  Table = "time_entries"
)

// ChangeType is the kind of write a ChangeEvent reports.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent is a best-effort notification that a record was written.
// Delivery is at-least-once with no ordering guarantee.
type ChangeEvent struct {
	ID         string     `json:"id"`
	Table      Table      `json:"table"`
	Type       ChangeType `json:"type"`
	RecordID   string     `json:"record_id"`
	UserID     string     `json:"user_id"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// NewChangeEvent stamps a fresh event id.
func NewChangeEvent(table Table, typ ChangeType, recordID, userID string, at time.Time) ChangeEvent {
	return ChangeEvent{
		ID:         NewID(),
		Table:      table,
		Type:       typ,
		RecordID:   recordID,
		UserID:     userID,
		OccurredAt: at,
	}
}
