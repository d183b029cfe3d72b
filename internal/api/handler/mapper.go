package handler

import (
	"time"

	"github.com/tickwise/timetrack/internal/core/cache"
	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
	"github.com/tickwise/timetrack/internal/core/report"
)

func toTimerResponse(snap cache.Snapshot, now time.Time) timerResponse {
	resp := timerResponse{
		ActiveTimer: snap.ActiveTimer,
		IsSyncing:   snap.IsSyncing,
		Degraded:    snap.Degraded,
	}
	if snap.ActiveTimer != nil {
		resp.ElapsedSeconds = int64(snap.ActiveTimer.Elapsed(now) / time.Second)
	}
	return resp
}

func toStartInput(r startTimerRequest) ports.StartTimerInput {
	return ports.StartTimerInput{
		ProjectID:   r.ProjectID,
		TaskID:      r.TaskID,
		Description: r.Description,
	}
}

func toEntryInput(r entryRequest) ports.EntryInput {
	return ports.EntryInput{
		Start:       r.StartTime,
		End:         r.EndTime,
		ProjectID:   r.ProjectID,
		TaskID:      r.TaskID,
		Description: r.Description,
		Billable:    r.Billable,
	}
}

func toBatchRows(reqs []batchRowRequest) []ports.BatchRow {
	rows := make([]ports.BatchRow, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, ports.BatchRow{
			ClientID:    r.ClientID,
			ProjectID:   r.ProjectID,
			TaskID:      r.TaskID,
			Start:       r.StartTime,
			End:         r.EndTime,
			Description: r.Description,
			Billable:    r.Billable,
		})
	}
	return rows
}

func toEntryList(entries []domain.TimeEntry) entryListResponse {
	if entries == nil {
		entries = []domain.TimeEntry{}
	}
	return entryListResponse{Entries: entries, Count: len(entries)}
}

func toSummaryResponse(s *report.Summary, f report.Filter) summaryResponse {
	return summaryResponse{
		Period:          f.Period(),
		Entries:         len(s.Entries),
		TotalSeconds:    s.TotalSeconds,
		BillableSeconds: s.BillableSeconds,
		TotalHours:      report.Hours(s.TotalSeconds),
		BillableHours:   report.Hours(s.BillableSeconds),
	}
}

// toFilter turns query parameters into a report filter. Days are interpreted
// in tz, or UTC when tz is empty.
func toFilter(q reportQuery) (report.Filter, error) {
	return report.ParseFilter(q.From, q.To, q.TZ, q.BillableOnly)
}

// toEntryQuery widens a day filter to the store's start-time bounds. ok is
// false when the query names no days.
func toEntryQuery(f report.Filter) (ports.EntryQuery, bool) {
	start, end, ok := f.Bounds()
	if !ok {
		return ports.EntryQuery{}, false
	}
	return ports.EntryQuery{From: start, To: end}, true
}
