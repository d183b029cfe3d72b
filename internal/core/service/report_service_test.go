package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/report"
)

type stubSource struct {
	entries []domain.TimeEntry
	err     error
}

func (s *stubSource) Entries(_ context.Context) ([]domain.TimeEntry, error) {
	return s.entries, s.err
}

type stubRenderer struct {
	doc *report.Document
}

func (r *stubRenderer) Render(w io.Writer, doc *report.Document) error {
	r.doc = doc
	_, err := w.Write([]byte("%PDF"))
	return err
}

// billableScenario: one billable hour and one non-billable half hour on the
// same day.
func billableScenario() []domain.TimeEntry {
	return []domain.TimeEntry{
		{ID: "a", UserID: testUser, ProjectID: "acme-web", StartTime: t0, EndTime: t0.Add(time.Hour), DurationSeconds: 3600, Billable: domain.Bool(true)},
		{ID: "b", UserID: testUser, ProjectID: "internal", StartTime: t0.Add(2 * time.Hour), EndTime: t0.Add(150 * time.Minute), DurationSeconds: 1800, Billable: domain.Bool(false)},
	}
}

func TestReportService_Summary_Totals(t *testing.T) {
	svc := NewReportService(&stubSource{entries: billableScenario()}, newDirectory(), nil, 0, discardLogger)

	sum, err := svc.Summary(context.Background(), report.Filter{From: t0, To: t0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.TotalSeconds != 5400 {
		t.Errorf("expected total 5400, got %d", sum.TotalSeconds)
	}
	if sum.BillableSeconds != 3600 {
		t.Errorf("expected billable 3600, got %d", sum.BillableSeconds)
	}
}

func TestReportService_Summary_BillableOnly(t *testing.T) {
	svc := NewReportService(&stubSource{entries: billableScenario()}, newDirectory(), nil, 0, discardLogger)

	sum, _ := svc.Summary(context.Background(), report.Filter{From: t0, To: t0, BillableOnly: true})
	if len(sum.Entries) != 1 || sum.Entries[0].ID != "a" {
		t.Fatalf("expected only the billable entry, got %+v", sum.Entries)
	}
	if sum.TotalSeconds != 3600 {
		t.Errorf("expected total 3600, got %d", sum.TotalSeconds)
	}
}

func TestReportService_Summary_SourceError(t *testing.T) {
	svc := NewReportService(&stubSource{err: errors.New("boom")}, newDirectory(), nil, 0, discardLogger)

	if _, err := svc.Summary(context.Background(), report.Filter{}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestReportService_ExportCSV_UsesProjectNames(t *testing.T) {
	svc := NewReportService(&stubSource{entries: billableScenario()}, newDirectory(), nil, 0, discardLogger)

	var buf bytes.Buffer
	if err := svc.ExportCSV(context.Background(), &buf, report.Filter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "date,project,description,duration_hours,billable" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "2024-03-04,Acme Website,,1.00,Yes" {
		t.Errorf("unexpected first row %q", lines[1])
	}
	if lines[2] != "2024-03-04,Internal,,0.50,No" {
		t.Errorf("unexpected second row %q", lines[2])
	}
}

func TestReportService_ExportPDF(t *testing.T) {
	r := &stubRenderer{}
	svc := NewReportService(&stubSource{entries: billableScenario()}, newDirectory(), r, 1, discardLogger)

	var buf bytes.Buffer
	if err := svc.ExportPDF(context.Background(), &buf, report.Filter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.doc == nil || len(r.doc.Pages) != 2 {
		t.Fatalf("expected a 2-page document with page size 1, got %+v", r.doc)
	}
	if r.doc.Totals.TotalHours != "1.50" || r.doc.Totals.BillableHours != "1.00" {
		t.Errorf("unexpected totals %+v", r.doc.Totals)
	}
	if buf.String() != "%PDF" {
		t.Errorf("renderer output not written, got %q", buf.String())
	}
}

func TestReportService_ExportPDF_NoRenderer(t *testing.T) {
	svc := NewReportService(&stubSource{}, nil, nil, 0, discardLogger)

	if err := svc.ExportPDF(context.Background(), io.Discard, report.Filter{}); err == nil {
		t.Fatal("expected error without a renderer, got nil")
	}
}

func TestStoreSource_ReadsRepository(t *testing.T) {
	repo := newStubEntryRepo()
	for _, e := range billableScenario() {
		e := e
		_ = repo.Insert(context.Background(), &e)
	}

	got, err := StoreSource{Repo: repo, UserID: testUser}.Entries(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 entries, got %d", len(got))
	}
}
