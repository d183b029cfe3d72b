// Package report filters and totals time entries and shapes them for export.
// Everything here is a pure function of (entries, filter); nothing reads or
// writes a store.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/tickwise/timetrack/internal/core/domain"
)

const dateLayout = "2006-01-02"

// Filter selects entries by the calendar day of their start time.
type Filter struct {
	// From and To are inclusive day bounds; their order does not matter.
	// When only one is set it selects that single day; when neither is set
	// every entry matches.
	From time.Time
	To   time.Time
	// BillableOnly drops entries explicitly marked non-billable.
	BillableOnly bool
	// Location defines day boundaries. Nil means UTC.
	Location *time.Location
}

func (f Filter) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// Bounds returns the effective inclusive window [startOfDay(min), endOfDay(max)].
// ok is false when the filter has no date bounds.
func (f Filter) Bounds() (start, end time.Time, ok bool) {
	from, to := f.From, f.To
	switch {
	case from.IsZero() && to.IsZero():
		return time.Time{}, time.Time{}, false
	case from.IsZero():
		from = to
	case to.IsZero():
		to = from
	}
	if to.Before(from) {
		from, to = to, from
	}
	loc := f.location()
	return startOfDay(from, loc), endOfDay(to, loc), true
}

// Period renders the effective bounds as "YYYY-MM-DD to YYYY-MM-DD".
func (f Filter) Period() string {
	start, end, ok := f.Bounds()
	if !ok {
		return "all time"
	}
	return fmt.Sprintf("%s to %s", start.Format(dateLayout), end.Format(dateLayout))
}

// Match reports whether e passes the filter.
func (f Filter) Match(e *domain.TimeEntry) bool {
	if start, end, ok := f.Bounds(); ok {
		if e.StartTime.Before(start) || e.StartTime.After(end) {
			return false
		}
	}
	if f.BillableOnly && !e.IsBillable() {
		return false
	}
	return true
}

// Apply returns the matching entries ordered by start time, then id.
func Apply(entries []domain.TimeEntry, f Filter) []domain.TimeEntry {
	out := make([]domain.TimeEntry, 0, len(entries))
	for i := range entries {
		if f.Match(&entries[i]) {
			out = append(out, entries[i].Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Summary is a filtered entry set with its totals.
type Summary struct {
	Entries         []domain.TimeEntry `json:"entries"`
	TotalSeconds    int64              `json:"total_seconds"`
	BillableSeconds int64              `json:"billable_seconds"`
}

// Summarize filters entries and sums their durations.
func Summarize(entries []domain.TimeEntry, f Filter) Summary {
	s := Summary{Entries: Apply(entries, f)}
	for i := range s.Entries {
		e := &s.Entries[i]
		s.TotalSeconds += e.DurationSeconds
		if e.IsBillable() {
			s.BillableSeconds += e.DurationSeconds
		}
	}
	return s
}

// Hours formats seconds as fractional hours with two decimals.
func Hours(seconds int64) string {
	return fmt.Sprintf("%.2f", float64(seconds)/3600)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	return startOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ParseFilter builds a filter from user input: from and to are YYYY-MM-DD
// days (either may be empty) and tz an IANA zone name, UTC when empty.
func ParseFilter(from, to, tz string, billableOnly bool) (Filter, error) {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return Filter{}, &domain.ValidationError{Field: "tz", Reason: "unknown time zone"}
		}
		loc = l
	}
	f := Filter{BillableOnly: billableOnly, Location: loc}
	var err error
	if f.From, err = parseDay("from", from, loc); err != nil {
		return Filter{}, err
	}
	if f.To, err = parseDay("to", to, loc); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func parseDay(field, value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Reason: "must be a date formatted as YYYY-MM-DD"}
	}
	return t, nil
}
