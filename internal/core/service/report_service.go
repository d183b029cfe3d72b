package service

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
	"github.com/tickwise/timetrack/internal/core/report"
	"github.com/tickwise/timetrack/internal/metrics"
)

// EntrySource yields the reconciled entry collection for one user.
// *syncer.Syncer satisfies it.
type EntrySource interface {
	Entries(ctx context.Context) ([]domain.TimeEntry, error)
}

// DocumentRenderer writes a report document in a binary format such as PDF.
type DocumentRenderer interface {
	Render(w io.Writer, doc *report.Document) error
}

// ReportService builds summaries and exports from the reconciled cache. It
// never writes.
type ReportService struct {
	source    EntrySource
	directory ports.Directory
	renderer  DocumentRenderer
	pageSize  int
	logger    zerolog.Logger
}

func NewReportService(source EntrySource, directory ports.Directory, renderer DocumentRenderer, pageSize int, logger zerolog.Logger) *ReportService {
	return &ReportService{
		source:    source,
		directory: directory,
		renderer:  renderer,
		pageSize:  pageSize,
		logger:    logger,
	}
}

func (s *ReportService) Summary(ctx context.Context, f report.Filter) (*report.Summary, error) {
	entries, err := s.source.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	sum := report.Summarize(entries, f)
	return &sum, nil
}

// Rows returns the export rows of the filtered summary.
func (s *ReportService) Rows(ctx context.Context, f report.Filter) ([]report.Row, error) {
	sum, err := s.Summary(ctx, f)
	if err != nil {
		return nil, err
	}
	return report.Rows(sum.Entries, s.labeler(ctx), f.Location), nil
}

func (s *ReportService) ExportCSV(ctx context.Context, w io.Writer, f report.Filter) error {
	rows, err := s.Rows(ctx, f)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(w, rows); err != nil {
		return err
	}
	metrics.ReportExportsTotal.WithLabelValues("csv").Inc()
	return nil
}

func (s *ReportService) Document(ctx context.Context, f report.Filter) (*report.Document, error) {
	sum, err := s.Summary(ctx, f)
	if err != nil {
		return nil, err
	}
	metrics.ReportExportsTotal.WithLabelValues("document").Inc()
	return report.BuildDocument(*sum, s.labeler(ctx), f, s.pageSize), nil
}

// ExportPDF renders the document through the configured renderer.
func (s *ReportService) ExportPDF(ctx context.Context, w io.Writer, f report.Filter) error {
	if s.renderer == nil {
		return fmt.Errorf("pdf export: no renderer configured")
	}
	sum, err := s.Summary(ctx, f)
	if err != nil {
		return err
	}
	doc := report.BuildDocument(*sum, s.labeler(ctx), f, s.pageSize)
	if err := s.renderer.Render(w, doc); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	metrics.ReportExportsTotal.WithLabelValues("pdf").Inc()
	return nil
}

// labeler resolves project names from the directory; a directory failure
// degrades labels to raw ids rather than failing the report.
func (s *ReportService) labeler(ctx context.Context) report.Labeler {
	if s.directory == nil {
		return report.ProjectLabels(nil)
	}
	projects, err := s.directory.Projects(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("directory unavailable, using raw project ids")
		return report.ProjectLabels(nil)
	}
	return report.ProjectLabels(projects)
}

// StoreSource reads entries straight from the repository. It backs offline
// exports where no session cache exists.
type StoreSource struct {
	Repo   ports.EntryRepository
	UserID string
	Query  ports.EntryQuery
}

func (s StoreSource) Entries(ctx context.Context) ([]domain.TimeEntry, error) {
	return s.Repo.ListByUser(ctx, s.UserID, s.Query)
}
