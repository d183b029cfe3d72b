package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/tickwise/timetrack/internal/core/domain"
)

// Header is the column contract of every tabular export.
var Header = []string{"date", "project", "description", "duration_hours", "billable"}

// Row is one exported entry.
type Row struct {
	Date          string `json:"date"`
	Project       string `json:"project"`
	Description   string `json:"description"`
	DurationHours string `json:"duration_hours"`
	Billable      string `json:"billable"`
}

func (r Row) Fields() []string {
	return []string{r.Date, r.Project, r.Description, r.DurationHours, r.Billable}
}

// Labeler maps a project id to its display label.
type Labeler func(projectID string) string

// ProjectLabels builds a Labeler from directory projects. The sentinel always
// reads "Unassigned"; unknown ids fall back to the raw id.
func ProjectLabels(projects []domain.Project) Labeler {
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}
	return func(id string) string {
		if id == "" || id == domain.UnassignedProjectID {
			return domain.UnassignedProjectName
		}
		if name, ok := names[id]; ok && name != "" {
			return name
		}
		return id
	}
}

// Rows shapes entries into export rows, one per entry, in the given order.
func Rows(entries []domain.TimeEntry, label Labeler, loc *time.Location) []Row {
	if loc == nil {
		loc = time.UTC
	}
	if label == nil {
		label = ProjectLabels(nil)
	}
	rows := make([]Row, len(entries))
	for i := range entries {
		e := &entries[i]
		desc := ""
		if e.Description != nil {
			desc = *e.Description
		}
		billable := "No"
		if e.IsBillable() {
			billable = "Yes"
		}
		rows[i] = Row{
			Date:          e.StartTime.In(loc).Format(dateLayout),
			Project:       label(e.ProjectID),
			Description:   desc,
			DurationHours: Hours(e.DurationSeconds),
			Billable:      billable,
		}
	}
	return rows
}

// WriteCSV writes the header and rows as comma-separated text.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Fields()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
