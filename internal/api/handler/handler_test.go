package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickwise/timetrack/internal/api/middleware"
	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/session"
	"github.com/tickwise/timetrack/internal/core/syncer"
	"github.com/tickwise/timetrack/internal/infrastructure/db/memory"
	"github.com/tickwise/timetrack/internal/infrastructure/directory"
	"github.com/tickwise/timetrack/internal/infrastructure/pdf"
)

const testUser = "user_1"

type testEnv struct {
	e         *echo.Echo
	sessions  *session.Manager
	entries   *memory.EntryRepository
	directory *directory.Static
}

func newTestDirectory(t *testing.T) *directory.Static {
	t.Helper()
	dir, err := directory.New(
		[]domain.Project{
			{ID: "acme-web", Name: "Acme Website", ClientID: "acme", ClientName: "Acme Corp", Billable: true},
			{ID: "internal", Name: "Internal", Billable: false},
		},
		[]domain.Task{
			{ID: "design", ProjectID: "acme-web", Name: "Design"},
			{ID: "retro", ProjectID: "internal", Name: "Retro"},
		},
	)
	require.NoError(t, err)
	return dir
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	entries := memory.NewEntryRepository()
	dir := newTestDirectory(t)
	mgr := session.NewManager(session.Deps{
		Timers:    memory.NewTimerRepository(),
		Entries:   entries,
		Directory: dir,
		Renderer:  pdf.NewRenderer(),
	}, session.Config{
		Sync:        syncer.Config{TimerInterval: time.Hour, EntriesInterval: time.Hour},
		IdleTimeout: time.Hour,
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	e := echo.New()
	e.Validator = NewValidator()
	return &testEnv{e: e, sessions: mgr, entries: entries, directory: dir}
}

// call runs h as the test user. params are name/value pairs for path params.
func (env *testEnv) call(h echo.HandlerFunc, method, target, body string, params ...string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.Set(middleware.UserIDKey, testUser)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	return rec, h(c)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func entryBody(start, end string, extra string) string {
	body := `{"start_time":"` + start + `","end_time":"` + end + `"`
	if extra != "" {
		body += "," + extra
	}
	return body + "}"
}

// --- timer ---

func TestTimerHandler_StartStop(t *testing.T) {
	env := newTestEnv(t)
	h := NewTimerHandler(env.sessions, nil)

	rec, err := env.call(h.Start, http.MethodPost, "/v1/timer/start", `{"project_id":"acme-web","task_id":"design","description":"landing page"}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code)
	timer := decode[domain.ActiveTimer](t, rec)
	assert.Equal(t, "acme-web", timer.ProjectID)
	assert.Equal(t, testUser, timer.UserID)

	_, err = env.call(h.Start, http.MethodPost, "/v1/timer/start", "")
	assert.ErrorIs(t, err, domain.ErrTimerRunning)

	rec, err = env.call(h.Get, http.MethodGet, "/v1/timer", "")
	require.NoError(t, err)
	state := decode[timerResponse](t, rec)
	require.NotNil(t, state.ActiveTimer)
	assert.Equal(t, timer.ID, state.ActiveTimer.ID)

	rec, err = env.call(h.Stop, http.MethodPost, "/v1/timer/stop", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code)
	entry := decode[domain.TimeEntry](t, rec)
	assert.Equal(t, "acme-web", entry.ProjectID)
	assert.GreaterOrEqual(t, entry.DurationSeconds, int64(1))
	assert.True(t, entry.IsBillable())

	_, err = env.call(h.Stop, http.MethodPost, "/v1/timer/stop", "")
	assert.ErrorIs(t, err, domain.ErrNoActiveTimer)

	rec, err = env.call(h.Get, http.MethodGet, "/v1/timer", "")
	require.NoError(t, err)
	assert.Nil(t, decode[timerResponse](t, rec).ActiveTimer)
}

func TestTimerHandler_StartRejectsForeignTask(t *testing.T) {
	env := newTestEnv(t)
	h := NewTimerHandler(env.sessions, nil)

	_, err := env.call(h.Start, http.MethodPost, "/v1/timer/start", `{"project_id":"acme-web","task_id":"retro"}`)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTimerHandler_StartRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	h := NewTimerHandler(env.sessions, nil)

	_, err := env.call(h.Start, http.MethodPost, "/v1/timer/start", `{"project_id":`)

	assert.Equal(t, http.StatusBadRequest, httpCode(t, err))
}

func TestTimerHandler_StreamSendsCurrentState(t *testing.T) {
	env := newTestEnv(t)
	h := NewTimerHandler(env.sessions, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/timer/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.Set(middleware.UserIDKey, testUser)

	errc := make(chan error, 1)
	go func() { errc <- h.Stream(c) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-errc)

	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "event: timer\ndata: {")
}

// --- entries ---

func TestEntryHandler_CreateUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	h := NewEntryHandler(env.sessions)

	rec, err := env.call(h.Create, http.MethodPost, "/v1/entries",
		entryBody("2024-03-04T09:00:00Z", "2024-03-04T09:31:40Z", `"project_id":"acme-web"`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[domain.TimeEntry](t, rec)
	assert.Equal(t, int64(1900), created.DurationSeconds)

	rec, err = env.call(h.Update, http.MethodPut, "/v1/entries/"+created.ID,
		entryBody("2024-03-04T09:00:00Z", "2024-03-04T10:00:00Z", `"project_id":"acme-web"`), "id", created.ID)
	require.NoError(t, err)
	updated := decode[domain.TimeEntry](t, rec)
	assert.Equal(t, int64(3600), updated.DurationSeconds)
	assert.Equal(t, created.ID, updated.ID)

	rec, err = env.call(h.Delete, http.MethodDelete, "/v1/entries/"+created.ID, "", "id", created.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, env.entries.Len())

	_, err = env.call(h.Delete, http.MethodDelete, "/v1/entries/"+created.ID, "", "id", created.ID)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestEntryHandler_CreateRejectsInvertedWindow(t *testing.T) {
	env := newTestEnv(t)
	h := NewEntryHandler(env.sessions)

	_, err := env.call(h.Create, http.MethodPost, "/v1/entries",
		entryBody("2024-03-04T10:00:00Z", "2024-03-04T09:00:00Z", ""))

	require.Equal(t, http.StatusUnprocessableEntity, httpCode(t, err))
	assert.Contains(t, err.Error(), "end_time must be after start_time")
	assert.Equal(t, 0, env.entries.Len())
}

func TestEntryHandler_CreateRequiresTimes(t *testing.T) {
	env := newTestEnv(t)
	h := NewEntryHandler(env.sessions)

	_, err := env.call(h.Create, http.MethodPost, "/v1/entries", `{"project_id":"acme-web"}`)

	require.Equal(t, http.StatusUnprocessableEntity, httpCode(t, err))
	assert.Contains(t, err.Error(), "start_time is required")
}

func TestEntryHandler_ListByDayRange(t *testing.T) {
	env := newTestEnv(t)
	h := NewEntryHandler(env.sessions)

	for _, body := range []string{
		entryBody("2024-03-04T09:00:00Z", "2024-03-04T10:00:00Z", ""),
		entryBody("2024-03-06T23:00:00Z", "2024-03-06T23:30:00Z", ""),
	} {
		_, err := env.call(h.Create, http.MethodPost, "/v1/entries", body)
		require.NoError(t, err)
	}

	rec, err := env.call(h.List, http.MethodGet, "/v1/entries?from=2024-03-06&to=2024-03-04", "")
	require.NoError(t, err)
	assert.Equal(t, 2, decode[entryListResponse](t, rec).Count)

	rec, err = env.call(h.List, http.MethodGet, "/v1/entries?from=2024-03-05", "")
	require.NoError(t, err)
	assert.Equal(t, 0, decode[entryListResponse](t, rec).Count)

	rec, err = env.call(h.List, http.MethodGet, "/v1/entries", "")
	require.NoError(t, err)
	all := decode[entryListResponse](t, rec)
	require.Equal(t, 2, all.Count)
	assert.True(t, all.Entries[0].StartTime.After(all.Entries[1].StartTime), "newest first")
}

func TestEntryHandler_ListRejectsBadDate(t *testing.T) {
	env := newTestEnv(t)
	h := NewEntryHandler(env.sessions)

	_, err := env.call(h.List, http.MethodGet, "/v1/entries?from=04/03/2024", "")

	assert.Equal(t, http.StatusUnprocessableEntity, httpCode(t, err))
}

func TestEntryHandler_BatchAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	h := NewEntryHandler(env.sessions)

	body := `{"entries":[
		{"project_id":"acme-web","client_id":"acme","start_time":"2024-03-04T09:00:00Z","end_time":"2024-03-04T10:00:00Z"},
		{"project_id":"acme-web","start_time":"2024-03-04T12:00:00Z","end_time":"2024-03-04T11:00:00Z"}
	]}`
	_, err := env.call(h.Batch, http.MethodPost, "/v1/entries/batch", body)

	var rowErr *domain.BatchValidationError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 2, rowErr.Row)
	assert.Equal(t, 0, env.entries.Len())

	body = `{"entries":[
		{"project_id":"acme-web","client_id":"acme","start_time":"2024-03-04T09:00:00Z","end_time":"2024-03-04T10:00:00Z"},
		{"project_id":"internal","task_id":"retro","start_time":"2024-03-04T12:00:00Z","end_time":"2024-03-04T12:30:00Z"}
	]}`
	rec, err := env.call(h.Batch, http.MethodPost, "/v1/entries/batch", body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, decode[entryListResponse](t, rec).Count)
	assert.Equal(t, 2, env.entries.Len())
}

// --- reports ---

func seedBillableScenario(t *testing.T, env *testEnv) {
	t.Helper()
	h := NewEntryHandler(env.sessions)
	for _, body := range []string{
		entryBody("2024-03-04T09:00:00Z", "2024-03-04T10:00:00Z", `"project_id":"acme-web","description":"kickoff"`),
		entryBody("2024-03-04T13:00:00Z", "2024-03-04T13:30:00Z", `"project_id":"internal","billable":false`),
	} {
		_, err := env.call(h.Create, http.MethodPost, "/v1/entries", body)
		require.NoError(t, err)
	}
}

func TestReportHandler_Summary(t *testing.T) {
	env := newTestEnv(t)
	seedBillableScenario(t, env)
	h := NewReportHandler(env.sessions)

	rec, err := env.call(h.Summary, http.MethodGet, "/v1/reports/summary?from=2024-03-04&to=2024-03-04", "")
	require.NoError(t, err)
	sum := decode[summaryResponse](t, rec)
	assert.Equal(t, 2, sum.Entries)
	assert.Equal(t, "1.50", sum.TotalHours)
	assert.Equal(t, "1.00", sum.BillableHours)
	assert.Equal(t, "2024-03-04 to 2024-03-04", sum.Period)

	rec, err = env.call(h.Summary, http.MethodGet, "/v1/reports/summary?billable_only=true", "")
	require.NoError(t, err)
	sum = decode[summaryResponse](t, rec)
	assert.Equal(t, 1, sum.Entries)
	assert.Equal(t, int64(3600), sum.TotalSeconds)
}

func TestReportHandler_RejectsUnknownTimeZone(t *testing.T) {
	env := newTestEnv(t)
	h := NewReportHandler(env.sessions)

	_, err := env.call(h.Summary, http.MethodGet, "/v1/reports/summary?tz=Mars/Olympus", "")

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReportHandler_Document(t *testing.T) {
	env := newTestEnv(t)
	seedBillableScenario(t, env)
	h := NewReportHandler(env.sessions)

	rec, err := env.call(h.Document, http.MethodGet, "/v1/reports/document", "")
	require.NoError(t, err)
	var doc struct {
		Title  string `json:"title"`
		Period string `json:"period"`
		Pages  []struct {
			Rows []map[string]string `json:"rows"`
		} `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "Time Report", doc.Title)
	assert.Equal(t, "all time", doc.Period)
	require.Len(t, doc.Pages, 1)
	assert.Len(t, doc.Pages[0].Rows, 2)
}

func TestReportHandler_ExportCSV(t *testing.T) {
	env := newTestEnv(t)
	seedBillableScenario(t, env)
	h := NewReportHandler(env.sessions)

	rec, err := env.call(h.ExportCSV, http.MethodGet, "/v1/reports/export.csv", "")
	require.NoError(t, err)

	assert.Equal(t, mimeCSV, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "time-report.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,project,description,duration_hours,billable", lines[0])
	assert.Contains(t, lines[1], "Acme Website")
}

func TestReportHandler_ExportPDF(t *testing.T) {
	env := newTestEnv(t)
	seedBillableScenario(t, env)
	h := NewReportHandler(env.sessions)

	rec, err := env.call(h.ExportPDF, http.MethodGet, "/v1/reports/export.pdf", "")
	require.NoError(t, err)

	assert.Equal(t, mimePDF, rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

// --- projects, session, health ---

func TestProjectHandler_ListAndSearch(t *testing.T) {
	env := newTestEnv(t)
	h := NewProjectHandler(env.directory)

	rec, err := env.call(h.List, http.MethodGet, "/v1/projects", "")
	require.NoError(t, err)
	all := decode[projectListResponse](t, rec)
	require.Equal(t, 3, all.Count)
	assert.Equal(t, domain.UnassignedProjectID, all.Projects[0].ID)

	rec, err = env.call(h.List, http.MethodGet, "/v1/projects?q=acme", "")
	require.NoError(t, err)
	found := decode[projectListResponse](t, rec)
	require.NotEmpty(t, found.Projects)
	assert.Equal(t, "acme-web", found.Projects[0].ID)
}

func TestSessionHandler_End(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.sessions.Get(context.Background(), testUser)
	require.NoError(t, err)
	require.Equal(t, 1, env.sessions.Len())

	rec, err := env.call(NewSessionHandler(env.sessions).End, http.MethodDelete, "/v1/session", "")

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, env.sessions.Len())
}

func TestCtxUserID_Missing(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, err := ctxUserID(c)

	assert.Equal(t, http.StatusUnauthorized, httpCode(t, err))
}

func TestHealthHandler_Readiness(t *testing.T) {
	e := echo.New()
	h := NewHealthHandler(map[string]Pinger{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)
	require.NoError(t, h.Readiness(c))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[readinessResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "ok", resp.Dependencies["store"].Status)
	assert.Equal(t, "connection refused", resp.Dependencies["redis"].Error)
}

func TestHealthHandler_Liveness(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	require.NoError(t, NewHealthHandler(nil).Liveness(c))

	assert.Equal(t, http.StatusOK, rec.Code)
}
