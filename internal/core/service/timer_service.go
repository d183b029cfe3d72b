package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickwise/timetrack/internal/core/cache"
	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
	"github.com/tickwise/timetrack/internal/metrics"
)

// TimerService starts and stops one user's timer.
type TimerService struct {
	userID    string
	timers    ports.TimerRepository
	entries   ports.EntryRepository
	directory ports.Directory
	cache     *cache.Cache
	clock     domain.Clock
	logger    zerolog.Logger
}

func NewTimerService(
	userID string,
	timers ports.TimerRepository,
	entries ports.EntryRepository,
	directory ports.Directory,
	c *cache.Cache,
	clock domain.Clock,
	logger zerolog.Logger,
) *TimerService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &TimerService{
		userID:    userID,
		timers:    timers,
		entries:   entries,
		directory: directory,
		cache:     c,
		clock:     clock,
		logger:    logger,
	}
}

// Current returns the cached snapshot; it never touches the store.
func (s *TimerService) Current() cache.Snapshot {
	return s.cache.Snapshot()
}

// Start creates the user's single active timer. When one already exists the
// call fails with ErrTimerRunning and the cache is left untouched.
func (s *TimerService) Start(ctx context.Context, input ports.StartTimerInput) (*domain.ActiveTimer, error) {
	projectID := domain.ResolveProjectID(input.ProjectID)
	taskID := normalizeTask(input.TaskID)
	if _, err := checkSelection(ctx, s.directory, projectID, taskID); err != nil {
		return nil, err
	}

	existing, err := s.timers.FindByUser(ctx, s.userID)
	switch {
	case err == nil && existing != nil:
		metrics.TimerStartConflictsTotal.Inc()
		s.logger.Info().Str("user_id", s.userID).Str("timer_id", existing.ID).Msg("start rejected: timer running")
		return nil, domain.ErrTimerRunning
	case err != nil && !errors.Is(err, domain.ErrNoActiveTimer):
		s.logger.Error().Err(err).Str("user_id", s.userID).Msg("failed to look up active timer")
		return nil, fmt.Errorf("lookup active timer: %w", err)
	}

	timer := &domain.ActiveTimer{
		ID:          domain.NewID(),
		UserID:      s.userID,
		ProjectID:   projectID,
		TaskID:      taskID,
		Description: input.Description,
		StartTime:   s.clock.Now(),
	}
	if err := s.timers.Insert(ctx, timer); err != nil {
		if errors.Is(err, domain.ErrTimerRunning) {
			metrics.TimerStartConflictsTotal.Inc()
			return nil, domain.ErrTimerRunning
		}
		s.logger.Error().Err(err).Str("user_id", s.userID).Msg("failed to insert timer")
		return nil, fmt.Errorf("insert timer: %w", err)
	}

	s.cache.SetActiveTimer(timer)
	metrics.TimersStartedTotal.Inc()
	s.logger.Info().Str("user_id", s.userID).Str("timer_id", timer.ID).Str("project_id", projectID).Msg("timer started")
	return timer.Clone(), nil
}

// Stop converts the active timer into a TimeEntry. The cached timer is
// checked against the store first, so a timer already stopped elsewhere is
// dropped from the cache instead of being converted again. The entry is
// inserted first; the timer is deleted only after that succeeds. Once issued,
// a stop is not cancelled by the caller going away.
func (s *TimerService) Stop(ctx context.Context) (*domain.TimeEntry, error) {
	cached := s.cache.ActiveTimer()
	if cached == nil {
		return nil, domain.ErrNoActiveTimer
	}
	ctx = context.WithoutCancel(ctx)

	active, err := s.timers.FindByUser(ctx, s.userID)
	switch {
	case errors.Is(err, domain.ErrNoActiveTimer):
		s.cache.ClearActiveTimerIf(cached.ID)
		s.logger.Info().Str("user_id", s.userID).Str("timer_id", cached.ID).Msg("stop rejected: timer already stopped")
		return nil, domain.ErrNoActiveTimer
	case err != nil:
		s.logger.Error().Err(err).Str("user_id", s.userID).Msg("failed to look up active timer")
		return nil, fmt.Errorf("lookup active timer: %w", err)
	case active.ID != cached.ID:
		s.cache.SetActiveTimer(active)
		s.logger.Info().Str("user_id", s.userID).Str("timer_id", cached.ID).Str("current_id", active.ID).
			Msg("stop rejected: cached timer is stale")
		return nil, domain.ErrNoActiveTimer
	}

	now := s.clock.Now()
	end := now
	if !end.After(active.StartTime) {
		end = active.StartTime.Add(time.Second)
	}

	entry := &domain.TimeEntry{
		ID:              domain.NewID(),
		UserID:          s.userID,
		ProjectID:       domain.ResolveProjectID(active.ProjectID),
		TaskID:          active.TaskID,
		Description:     active.Description,
		StartTime:       active.StartTime,
		EndTime:         end,
		DurationSeconds: domain.DurationSeconds(active.StartTime, end),
		Billable:        domain.Bool(s.projectBillable(ctx, active.ProjectID)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.entries.Insert(ctx, entry); err != nil {
		metrics.TimerStopFailuresTotal.WithLabelValues("insert_entry").Inc()
		s.logger.Error().Err(err).Str("user_id", s.userID).Str("timer_id", active.ID).Msg("stop failed: entry not written")
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	metrics.EntriesWrittenTotal.WithLabelValues("stop").Inc()

	if err := s.timers.Delete(ctx, active.ID, s.userID); err != nil {
		if errors.Is(err, domain.ErrNoActiveTimer) {
			return nil, s.undoStop(ctx, active, entry)
		}
		metrics.TimerStopFailuresTotal.WithLabelValues("delete_timer").Inc()
		s.logger.Error().Err(err).Str("user_id", s.userID).Str("timer_id", active.ID).Str("entry_id", entry.ID).
			Msg("stop failed: entry written but timer not deleted")
		s.cache.PrependEntry(*entry)
		return nil, fmt.Errorf("delete timer: %w", err)
	}

	s.cache.ClearActiveTimerIf(active.ID)
	s.cache.PrependEntry(*entry)
	metrics.TimersStoppedTotal.Inc()
	s.logger.Info().Str("user_id", s.userID).Str("entry_id", entry.ID).Int64("duration_seconds", entry.DurationSeconds).Msg("timer stopped")

	out := entry.Clone()
	return &out, nil
}

// undoStop handles a timer that disappeared between the lookup and the delete:
// another session stopped it and wrote its own entry, so ours is removed.
func (s *TimerService) undoStop(ctx context.Context, active *domain.ActiveTimer, entry *domain.TimeEntry) error {
	metrics.TimerStopFailuresTotal.WithLabelValues("timer_gone").Inc()
	s.cache.ClearActiveTimerIf(active.ID)
	if err := s.entries.Delete(ctx, entry.ID, s.userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", s.userID).Str("entry_id", entry.ID).
			Msg("stop lost a race and its entry could not be removed")
		s.cache.InvalidateEntries()
		return fmt.Errorf("remove duplicate entry: %w", err)
	}
	s.logger.Info().Str("user_id", s.userID).Str("timer_id", active.ID).Msg("stop lost a race, entry removed")
	return domain.ErrNoActiveTimer
}

// projectBillable reads the project's default; anything unresolvable is billable.
func (s *TimerService) projectBillable(ctx context.Context, projectID string) bool {
	p, err := lookupProject(ctx, s.directory, domain.ResolveProjectID(projectID))
	if err != nil {
		s.logger.Warn().Err(err).Str("project_id", projectID).Msg("project lookup failed, defaulting to billable")
		return true
	}
	return p.Billable
}
