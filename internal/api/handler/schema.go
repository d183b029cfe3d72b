package handler

import (
	"time"

	"github.com/tickwise/timetrack/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Timer ---

type startTimerRequest struct {
	ProjectID   string  `json:"project_id"  validate:"max=128"`
	TaskID      *string `json:"task_id"`
	Description *string `json:"description"`
}

type timerResponse struct {
	ActiveTimer    *domain.ActiveTimer `json:"active_timer"`
	ElapsedSeconds int64               `json:"elapsed_seconds"`
	IsSyncing      bool                `json:"is_syncing"`
	Degraded       bool                `json:"degraded"`
}

// --- Entries ---

type entryRequest struct {
	StartTime   time.Time `json:"start_time"  validate:"required"`
	EndTime     time.Time `json:"end_time"    validate:"required,gtfield=StartTime"`
	ProjectID   string    `json:"project_id"`
	TaskID      *string   `json:"task_id"`
	Description *string   `json:"description"`
	Billable    *bool     `json:"billable"`
}

// batchRowRequest is validated row by row by the batch service so that a
// rejection names the offending row.
type batchRowRequest struct {
	ClientID    string    `json:"client_id"`
	ProjectID   string    `json:"project_id"`
	TaskID      *string   `json:"task_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Description *string   `json:"description"`
	Billable    *bool     `json:"billable"`
}

type batchRequest struct {
	Entries []batchRowRequest `json:"entries" validate:"required"`
}

type entryListResponse struct {
	Entries []domain.TimeEntry `json:"entries"`
	Count   int                `json:"count"`
}

// --- Reports ---

// entriesQuery selects an inclusive range of calendar days in tz. Bound
// order does not matter; a single bound selects one day.
type entriesQuery struct {
	From string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `query:"to"   json:"to"   validate:"omitempty,datetime=2006-01-02"`
	TZ   string `query:"tz"   json:"tz"`
}

type reportQuery struct {
	From         string `query:"from"          json:"from"          validate:"omitempty,datetime=2006-01-02"`
	To           string `query:"to"            json:"to"            validate:"omitempty,datetime=2006-01-02"`
	TZ           string `query:"tz"            json:"tz"`
	BillableOnly bool   `query:"billable_only" json:"billable_only"`
}

type summaryResponse struct {
	Period          string `json:"period"`
	Entries         int    `json:"entries"`
	TotalSeconds    int64  `json:"total_seconds"`
	BillableSeconds int64  `json:"billable_seconds"`
	TotalHours      string `json:"total_hours"`
	BillableHours   string `json:"billable_hours"`
}

// --- Projects ---

type projectListResponse struct {
	Projects []domain.Project `json:"projects"`
	Count    int              `json:"count"`
}
