// Package memory provides process-local implementations of the store and
// change feed ports, used by STORE_DRIVER=memory and by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
)

// TimerRepository keeps active timers in a map keyed by id. Like the unique
// index of the real stores, it refuses a second timer for the same user.
type TimerRepository struct {
	mu   sync.Mutex
	byID map[string]domain.ActiveTimer
}

func NewTimerRepository() *TimerRepository {
	return &TimerRepository{byID: make(map[string]domain.ActiveTimer)}
}

func (r *TimerRepository) FindByUser(_ context.Context, userID string) (*domain.ActiveTimer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *domain.ActiveTimer
	for _, t := range r.byID {
		if t.UserID != userID {
			continue
		}
		if latest == nil || t.StartTime.After(latest.StartTime) {
			latest = t.Clone()
		}
	}
	if latest == nil {
		return nil, domain.ErrNoActiveTimer
	}
	return latest, nil
}

func (r *TimerRepository) Insert(_ context.Context, t *domain.ActiveTimer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.UserID == t.UserID {
			return domain.ErrTimerRunning
		}
	}
	r.byID[t.ID] = *t.Clone()
	return nil
}

func (r *TimerRepository) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok || t.UserID != userID {
		return domain.ErrNoActiveTimer
	}
	delete(r.byID, id)
	return nil
}

// Count returns the number of timers stored for a user.
func (r *TimerRepository) Count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.byID {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// EntryRepository keeps time entries in a map keyed by id.
type EntryRepository struct {
	mu   sync.Mutex
	byID map[string]domain.TimeEntry
}

func NewEntryRepository() *EntryRepository {
	return &EntryRepository{byID: make(map[string]domain.TimeEntry)}
}

func (r *EntryRepository) Insert(_ context.Context, e *domain.TimeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[e.ID] = e.Clone()
	return nil
}

func (r *EntryRepository) InsertMany(_ context.Context, entries []*domain.TimeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.byID[e.ID] = e.Clone()
	}
	return nil
}

func (r *EntryRepository) FindByID(_ context.Context, id, userID string) (*domain.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok || e.UserID != userID {
		return nil, domain.ErrEntryNotFound
	}
	clone := e.Clone()
	return &clone, nil
}

func (r *EntryRepository) Update(_ context.Context, e *domain.TimeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[e.ID]
	if !ok || existing.UserID != e.UserID {
		return domain.ErrEntryNotFound
	}
	r.byID[e.ID] = e.Clone()
	return nil
}

func (r *EntryRepository) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok || e.UserID != userID {
		return domain.ErrEntryNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *EntryRepository) ListByUser(_ context.Context, userID string, q ports.EntryQuery) ([]domain.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.TimeEntry{}
	for _, e := range r.byID {
		if e.UserID != userID {
			continue
		}
		if !q.From.IsZero() && e.StartTime.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && e.StartTime.After(q.To) {
			continue
		}
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

// Len returns the number of stored entries across all users.
func (r *EntryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
