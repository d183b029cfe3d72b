package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tickwise/timetrack/internal/core/cache"
	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
)

func newEntryService(repo *stubEntryRepo, c *cache.Cache) *EntryService {
	return NewEntryService(testUser, repo, newDirectory(), c, newClock(), discardLogger)
}

func TestEntryService_Create_ComputesDuration(t *testing.T) {
	repo := newStubEntryRepo()
	svc := newEntryService(repo, cache.New())

	entry, err := svc.Create(context.Background(), ports.EntryInput{
		Start:     t0,
		End:       t0.Add(31*time.Minute + 40*time.Second),
		ProjectID: "acme-web",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.DurationSeconds != 1900 {
		t.Errorf("expected 1900s, got %d", entry.DurationSeconds)
	}
	if !entry.IsBillable() || entry.Billable == nil {
		t.Error("billable must default to true on create")
	}
	if repo.count() != 1 {
		t.Errorf("expected 1 stored entry, got %d", repo.count())
	}
}

func TestEntryService_Create_RoundsToNearestSecond(t *testing.T) {
	svc := newEntryService(newStubEntryRepo(), cache.New())

	entry, err := svc.Create(context.Background(), ports.EntryInput{Start: t0, End: t0.Add(90*time.Second + 600*time.Millisecond)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.DurationSeconds != 91 {
		t.Errorf("expected 91s, got %d", entry.DurationSeconds)
	}
}

func TestEntryService_Create_StoresMillisecondWindow(t *testing.T) {
	repo := newStubEntryRepo()
	svc := newEntryService(repo, cache.New())

	entry, err := svc.Create(context.Background(), ports.EntryInput{
		Start: t0.Add(900 * time.Microsecond),
		End:   t0.Add(1500500 * time.Microsecond),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, err := repo.FindByID(context.Background(), entry.ID, testUser)
	if err != nil {
		t.Fatalf("stored entry: %v", err)
	}
	if !stored.StartTime.Equal(t0) || !stored.EndTime.Equal(t0.Add(1500*time.Millisecond)) {
		t.Errorf("bounds must be truncated to milliseconds, got %v..%v", stored.StartTime, stored.EndTime)
	}
	if want := domain.DurationSeconds(stored.StartTime, stored.EndTime); stored.DurationSeconds != want {
		t.Errorf("stored duration %d does not match stored window (%d)", stored.DurationSeconds, want)
	}
}

func TestEntryService_Create_RejectsInvertedWindow(t *testing.T) {
	repo := newStubEntryRepo()
	svc := newEntryService(repo, cache.New())

	_, err := svc.Create(context.Background(), ports.EntryInput{Start: t0, End: t0.Add(-time.Minute)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.insertCalls != 0 {
		t.Error("store must not be called for an invalid entry")
	}
}

func TestEntryService_Create_RejectsMissingStart(t *testing.T) {
	svc := newEntryService(newStubEntryRepo(), cache.New())

	_, err := svc.Create(context.Background(), ports.EntryInput{End: t0})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "start_time" {
		t.Fatalf("expected start_time validation error, got %v", err)
	}
}

func TestEntryService_Create_InvalidatesCache(t *testing.T) {
	c := cache.New()
	c.SetEntries(nil, c.EntriesGeneration())
	svc := newEntryService(newStubEntryRepo(), c)

	if _, err := svc.Create(context.Background(), ports.EntryInput{Start: t0, End: t0.Add(time.Hour)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, stale, _ := c.Entries(); !stale {
		t.Error("cached entries must be invalidated after create")
	}
}

func TestEntryService_Update_RecomputesDuration(t *testing.T) {
	repo := newStubEntryRepo()
	svc := newEntryService(repo, cache.New())
	created, _ := svc.Create(context.Background(), ports.EntryInput{Start: t0, End: t0.Add(time.Hour), Billable: domain.Bool(false)})

	updated, err := svc.Update(context.Background(), created.ID, ports.EntryInput{
		Start:       t0,
		End:         t0.Add(31*time.Minute + 40*time.Second),
		ProjectID:   "acme-web",
		TaskID:      strPtr("design"),
		Description: strPtr("mockups"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.DurationSeconds != 1900 {
		t.Errorf("expected 1900s after update, got %d", updated.DurationSeconds)
	}
	if updated.IsBillable() {
		t.Error("unset billable must keep the stored value")
	}
	if updated.ProjectID != "acme-web" || updated.TaskID == nil || *updated.TaskID != "design" {
		t.Errorf("project/task not replaced: %+v", updated)
	}

	stored, _ := repo.FindByID(context.Background(), created.ID, testUser)
	if stored.DurationSeconds != 1900 {
		t.Errorf("stored duration must be recomputed, got %d", stored.DurationSeconds)
	}
}

func TestEntryService_Update_NotFound(t *testing.T) {
	svc := newEntryService(newStubEntryRepo(), cache.New())

	_, err := svc.Update(context.Background(), "missing", ports.EntryInput{Start: t0, End: t0.Add(time.Hour)})
	if !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestEntryService_Update_OwnerScoped(t *testing.T) {
	repo := newStubEntryRepo()
	repo.byID["theirs"] = domain.TimeEntry{ID: "theirs", UserID: "someone_else", StartTime: t0, EndTime: t0.Add(time.Hour)}
	svc := newEntryService(repo, cache.New())

	_, err := svc.Update(context.Background(), "theirs", ports.EntryInput{Start: t0, End: t0.Add(time.Hour)})
	if !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound for another user's entry, got %v", err)
	}
}

func TestEntryService_Delete(t *testing.T) {
	repo := newStubEntryRepo()
	svc := newEntryService(repo, cache.New())
	created, _ := svc.Create(context.Background(), ports.EntryInput{Start: t0, End: t0.Add(time.Hour)})

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.count() != 0 {
		t.Errorf("expected entry removed, %d remain", repo.count())
	}
	if err := svc.Delete(context.Background(), created.ID); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Errorf("second delete must report ErrEntryNotFound, got %v", err)
	}
}

func TestEntryService_List(t *testing.T) {
	svc := newEntryService(newStubEntryRepo(), cache.New())
	for i := 0; i < 3; i++ {
		start := t0.Add(time.Duration(i) * 24 * time.Hour)
		_, _ = svc.Create(context.Background(), ports.EntryInput{Start: start, End: start.Add(time.Hour)})
	}

	got, err := svc.List(context.Background(), ports.EntryQuery{From: t0.Add(12 * time.Hour)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if !got[0].StartTime.After(got[1].StartTime) {
		t.Error("entries must be newest first")
	}
}
