package ports

import (
	"context"
	"time"

	"github.com/tickwise/timetrack/internal/core/domain"
)

// EntryQuery narrows a user's entries by start time. Zero bounds are open.
type EntryQuery struct {
	From time.Time // start_time >= From
	To   time.Time // start_time <= To
}

// EntryRepository persists historical time entries. Every call is owner-scoped.
type EntryRepository interface {
	Insert(ctx context.Context, e *domain.TimeEntry) error
	// InsertMany stores all entries or none.
	InsertMany(ctx context.Context, entries []*domain.TimeEntry) error
	FindByID(ctx context.Context, id, userID string) (*domain.TimeEntry, error)
	// Update replaces the stored entry; domain.ErrEntryNotFound when absent.
	Update(ctx context.Context, e *domain.TimeEntry) error
	Delete(ctx context.Context, id, userID string) error
	// ListByUser returns entries ordered by start_time descending.
	ListByUser(ctx context.Context, userID string, q EntryQuery) ([]domain.TimeEntry, error)
}
