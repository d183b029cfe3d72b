package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickwise/timetrack/internal/core/cache"
	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
	"github.com/tickwise/timetrack/internal/metrics"
)

// BatchService persists a list of manual entries all-or-nothing.
type BatchService struct {
	userID    string
	entries   ports.EntryRepository
	directory ports.Directory
	cache     *cache.Cache
	clock     domain.Clock
	logger    zerolog.Logger
}

func NewBatchService(
	userID string,
	entries ports.EntryRepository,
	directory ports.Directory,
	c *cache.Cache,
	clock domain.Clock,
	logger zerolog.Logger,
) *BatchService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &BatchService{
		userID:    userID,
		entries:   entries,
		directory: directory,
		cache:     c,
		clock:     clock,
		logger:    logger,
	}
}

// Submit validates every row before touching the store. The first invalid row
// fails the whole batch with a *domain.BatchValidationError and nothing is
// written. Valid batches are written with a single InsertMany call.
func (s *BatchService) Submit(ctx context.Context, rows []ports.BatchRow) ([]domain.TimeEntry, error) {
	if len(rows) == 0 {
		return nil, &domain.ValidationError{Field: "entries", Reason: "batch is empty"}
	}

	now := s.clock.Now()
	batch := make([]*domain.TimeEntry, 0, len(rows))
	for i, row := range rows {
		entry, err := s.build(ctx, row, now)
		if err != nil {
			metrics.BatchRowsTotal.WithLabelValues("rejected").Add(float64(len(rows)))
			s.logger.Info().Str("user_id", s.userID).Int("row", i+1).Err(err).Msg("batch rejected")
			return nil, &domain.BatchValidationError{Row: i + 1, Err: err}
		}
		batch = append(batch, &entry)
	}

	if err := s.entries.InsertMany(ctx, batch); err != nil {
		metrics.BatchRowsTotal.WithLabelValues("failed").Add(float64(len(rows)))
		s.logger.Error().Err(err).Str("user_id", s.userID).Int("rows", len(rows)).Msg("failed to persist batch")
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	s.cache.InvalidateEntries()
	metrics.BatchRowsTotal.WithLabelValues("persisted").Add(float64(len(rows)))
	metrics.EntriesWrittenTotal.WithLabelValues("batch").Add(float64(len(rows)))
	s.logger.Info().Str("user_id", s.userID).Int("rows", len(rows)).Msg("batch persisted")

	out := make([]domain.TimeEntry, len(batch))
	for i := range batch {
		out[i] = batch[i].Clone()
	}
	return out, nil
}

func (s *BatchService) build(ctx context.Context, row ports.BatchRow, now time.Time) (domain.TimeEntry, error) {
	w := domain.TimeWindow{Start: row.Start, End: row.End}.Normalize()
	if err := w.Validate(); err != nil {
		return domain.TimeEntry{}, err
	}
	if w.RoundedSeconds() < 1 {
		return domain.TimeEntry{}, &domain.ValidationError{Field: "end_time", Reason: "duration must be at least one second"}
	}

	projectID := domain.ResolveProjectID(row.ProjectID)
	taskID := normalizeTask(row.TaskID)
	project, err := checkSelection(ctx, s.directory, projectID, taskID)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if row.ClientID != "" && project.ClientID != row.ClientID {
		return domain.TimeEntry{}, &domain.ValidationError{Field: "client_id", Reason: "project does not belong to client"}
	}

	billable := row.Billable
	if billable == nil {
		billable = domain.Bool(project.Billable)
	}

	return domain.TimeEntry{
		ID:              domain.NewID(),
		UserID:          s.userID,
		ProjectID:       projectID,
		TaskID:          taskID,
		Description:     row.Description,
		StartTime:       w.Start,
		EndTime:         w.End,
		DurationSeconds: w.DurationSeconds(),
		Billable:        billable,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
