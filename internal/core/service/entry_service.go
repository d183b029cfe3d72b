package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tickwise/timetrack/internal/core/cache"
	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
	"github.com/tickwise/timetrack/internal/metrics"
)

// EntryService creates, edits and deletes one user's time entries.
type EntryService struct {
	userID    string
	entries   ports.EntryRepository
	directory ports.Directory
	cache     *cache.Cache
	clock     domain.Clock
	logger    zerolog.Logger
}

func NewEntryService(
	userID string,
	entries ports.EntryRepository,
	directory ports.Directory,
	c *cache.Cache,
	clock domain.Clock,
	logger zerolog.Logger,
) *EntryService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &EntryService{
		userID:    userID,
		entries:   entries,
		directory: directory,
		cache:     c,
		clock:     clock,
		logger:    logger,
	}
}

// Create persists a manual entry. Billable defaults to true when unset.
func (s *EntryService) Create(ctx context.Context, input ports.EntryInput) (*domain.TimeEntry, error) {
	w, projectID, taskID, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	billable := input.Billable
	if billable == nil {
		billable = domain.Bool(true)
	}

	now := s.clock.Now()
	entry := &domain.TimeEntry{
		ID:              domain.NewID(),
		UserID:          s.userID,
		ProjectID:       projectID,
		TaskID:          taskID,
		Description:     input.Description,
		StartTime:       w.Start,
		EndTime:         w.End,
		DurationSeconds: w.DurationSeconds(),
		Billable:        billable,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.entries.Insert(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("user_id", s.userID).Msg("failed to create entry")
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	s.cache.InvalidateEntries()
	metrics.EntriesWrittenTotal.WithLabelValues("create").Inc()
	s.logger.Info().Str("user_id", s.userID).Str("entry_id", entry.ID).Msg("entry created")
	out := entry.Clone()
	return &out, nil
}

// Update replaces the window, project/task and description of an existing
// entry and recomputes its duration. An unset billable keeps the stored value.
func (s *EntryService) Update(ctx context.Context, id string, input ports.EntryInput) (*domain.TimeEntry, error) {
	w, projectID, taskID, err := s.validate(ctx, input)
	if err != nil {
		return nil, err
	}

	existing, err := s.entries.FindByID(ctx, id, s.userID)
	if err != nil {
		return nil, err
	}

	existing.ProjectID = projectID
	existing.TaskID = taskID
	existing.Description = input.Description
	existing.StartTime = w.Start
	existing.EndTime = w.End
	existing.DurationSeconds = w.DurationSeconds()
	if input.Billable != nil {
		existing.Billable = input.Billable
	}
	existing.UpdatedAt = s.clock.Now()

	if err := s.entries.Update(ctx, existing); err != nil {
		s.logger.Error().Err(err).Str("user_id", s.userID).Str("entry_id", id).Msg("failed to update entry")
		return nil, fmt.Errorf("update entry: %w", err)
	}

	s.cache.InvalidateEntries()
	metrics.EntriesWrittenTotal.WithLabelValues("update").Inc()
	s.logger.Info().Str("user_id", s.userID).Str("entry_id", id).Msg("entry updated")
	out := existing.Clone()
	return &out, nil
}

// Delete removes one of the user's entries.
func (s *EntryService) Delete(ctx context.Context, id string) error {
	if err := s.entries.Delete(ctx, id, s.userID); err != nil {
		return err
	}
	s.cache.InvalidateEntries()
	metrics.EntriesWrittenTotal.WithLabelValues("delete").Inc()
	s.logger.Info().Str("user_id", s.userID).Str("entry_id", id).Msg("entry deleted")
	return nil
}

// List queries the store directly, bypassing the cache.
func (s *EntryService) List(ctx context.Context, q ports.EntryQuery) ([]domain.TimeEntry, error) {
	entries, err := s.entries.ListByUser(ctx, s.userID, q)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *EntryService) validate(ctx context.Context, input ports.EntryInput) (domain.TimeWindow, string, *string, error) {
	w := domain.TimeWindow{Start: input.Start, End: input.End}.Normalize()
	if err := w.Validate(); err != nil {
		return w, "", nil, err
	}
	projectID := domain.ResolveProjectID(input.ProjectID)
	taskID := normalizeTask(input.TaskID)
	if _, err := checkSelection(ctx, s.directory, projectID, taskID); err != nil {
		return w, "", nil, err
	}
	return w, projectID, taskID, nil
}
