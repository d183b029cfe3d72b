package report

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const DefaultPageSize = 25

// Document is the paginated report: header, rows split into pages, and a
// totals section.
type Document struct {
	Title     string         `json:"title"`
	Period    string         `json:"period"`
	Header    []string       `json:"header"`
	Pages     []Page         `json:"pages"`
	Totals    Totals         `json:"totals"`
	ByProject []ProjectTotal `json:"by_project"`
}

type Page struct {
	Number int   `json:"number"`
	Rows   []Row `json:"rows"`
}

type Totals struct {
	TotalSeconds    int64  `json:"total_seconds"`
	BillableSeconds int64  `json:"billable_seconds"`
	TotalHours      string `json:"total_hours"`
	BillableHours   string `json:"billable_hours"`
}

type ProjectTotal struct {
	Project string `json:"project"`
	Seconds int64  `json:"seconds"`
	Hours   string `json:"hours"`
}

// BuildDocument lays out a summary as a paginated document. A pageSize <= 0
// uses DefaultPageSize. An empty summary still yields one empty page.
func BuildDocument(s Summary, label Labeler, f Filter, pageSize int) *Document {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if label == nil {
		label = ProjectLabels(nil)
	}
	rows := Rows(s.Entries, label, f.Location)

	doc := &Document{
		Title:  "Time Report",
		Period: f.Period(),
		Header: append([]string(nil), Header...),
		Totals: Totals{
			TotalSeconds:    s.TotalSeconds,
			BillableSeconds: s.BillableSeconds,
			TotalHours:      Hours(s.TotalSeconds),
			BillableHours:   Hours(s.BillableSeconds),
		},
		ByProject: projectTotals(s, label),
	}

	for start := 0; start < len(rows) || start == 0; start += pageSize {
		end := start + pageSize
		if end > len(rows) {
			end = len(rows)
		}
		doc.Pages = append(doc.Pages, Page{Number: len(doc.Pages) + 1, Rows: rows[start:end]})
		if end == len(rows) {
			break
		}
	}
	return doc
}

func projectTotals(s Summary, label Labeler) []ProjectTotal {
	seconds := map[string]int64{}
	for i := range s.Entries {
		seconds[label(s.Entries[i].ProjectID)] += s.Entries[i].DurationSeconds
	}

	labels := make([]string, 0, len(seconds))
	for l := range seconds {
		labels = append(labels, l)
	}
	collate.New(language.English, collate.IgnoreCase).SortStrings(labels)

	out := make([]ProjectTotal, len(labels))
	for i, l := range labels {
		out[i] = ProjectTotal{Project: l, Seconds: seconds[l], Hours: Hours(seconds[l])}
	}
	return out
}
