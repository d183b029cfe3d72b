package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubTimerRepo struct {
	mu        sync.Mutex
	byUser    map[string]*domain.ActiveTimer
	findErr   error // if set, FindByUser returns this error
	insertErr error // if set, Insert returns this error
	deleteErr error // if set, Delete returns this error
	deletes   int
}

func newStubTimerRepo() *stubTimerRepo {
	return &stubTimerRepo{byUser: make(map[string]*domain.ActiveTimer)}
}

func (r *stubTimerRepo) FindByUser(_ context.Context, userID string) (*domain.ActiveTimer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	t, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrNoActiveTimer
	}
	return t.Clone(), nil
}

// Insert mirrors the unique index on user_id.
func (r *stubTimerRepo) Insert(_ context.Context, t *domain.ActiveTimer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, ok := r.byUser[t.UserID]; ok {
		return domain.ErrTimerRunning
	}
	r.byUser[t.UserID] = t.Clone()
	return nil
}

func (r *stubTimerRepo) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	t, ok := r.byUser[userID]
	if !ok || t.ID != id {
		return domain.ErrNoActiveTimer
	}
	delete(r.byUser, userID)
	return nil
}

func (r *stubTimerRepo) stored(userID string) *domain.ActiveTimer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUser[userID]
}

type stubEntryRepo struct {
	mu            sync.Mutex
	byID          map[string]domain.TimeEntry
	insertErr     error // if set, Insert and InsertMany return this error
	insertCalls   int
	insertManyLen int
}

func newStubEntryRepo() *stubEntryRepo {
	return &stubEntryRepo{byID: make(map[string]domain.TimeEntry)}
}

func (r *stubEntryRepo) Insert(_ context.Context, e *domain.TimeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertCalls++
	if r.insertErr != nil {
		return r.insertErr
	}
	r.byID[e.ID] = e.Clone()
	return nil
}

func (r *stubEntryRepo) InsertMany(_ context.Context, entries []*domain.TimeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertCalls++
	r.insertManyLen = len(entries)
	if r.insertErr != nil {
		return r.insertErr
	}
	for _, e := range entries {
		r.byID[e.ID] = e.Clone()
	}
	return nil
}

func (r *stubEntryRepo) FindByID(_ context.Context, id, userID string) (*domain.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok || e.UserID != userID {
		return nil, domain.ErrEntryNotFound
	}
	clone := e.Clone()
	return &clone, nil
}

func (r *stubEntryRepo) Update(_ context.Context, e *domain.TimeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[e.ID]
	if !ok || existing.UserID != e.UserID {
		return domain.ErrEntryNotFound
	}
	r.byID[e.ID] = e.Clone()
	return nil
}

func (r *stubEntryRepo) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok || e.UserID != userID {
		return domain.ErrEntryNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubEntryRepo) ListByUser(_ context.Context, userID string, q ports.EntryQuery) ([]domain.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TimeEntry
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
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (r *stubEntryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type stubDirectory struct {
	projects map[string]domain.Project
	tasks    map[string]domain.Task
}

func (d *stubDirectory) Project(_ context.Context, id string) (*domain.Project, error) {
	p, ok := d.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return &p, nil
}

func (d *stubDirectory) Task(_ context.Context, id string) (*domain.Task, error) {
	t, ok := d.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

func (d *stubDirectory) Projects(_ context.Context) ([]domain.Project, error) {
	out := []domain.Project{domain.UnassignedProject()}
	for _, p := range d.projects {
		out = append(out, p)
	}
	return out, nil
}

func (d *stubDirectory) Search(_ context.Context, query string) ([]domain.Project, error) {
	var out []domain.Project
	for _, p := range d.projects {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeClock returns a fixed instant that tests move explicitly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const testUser = "user_1"

var discardLogger = zerolog.Nop()

var t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func newClock() *fakeClock { return &fakeClock{now: t0} }

// newDirectory has a billable client project with one task and an internal
// non-billable project.
func newDirectory() *stubDirectory {
	return &stubDirectory{
		projects: map[string]domain.Project{
			"acme-web": {ID: "acme-web", Name: "Acme Website", ClientID: "acme", ClientName: "Acme", Billable: true},
			"internal": {ID: "internal", Name: "Internal", Billable: false},
		},
		tasks: map[string]domain.Task{
			"design": {ID: "design", ProjectID: "acme-web", Name: "Design"},
			"retro":  {ID: "retro", ProjectID: "internal", Name: "Retro"},
		},
	}
}

func strPtr(s string) *string { return &s }
