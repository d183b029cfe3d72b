package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tickwise/timetrack/internal/core/report"
)

// EntryHandler edits and lists historical time entries.
type EntryHandler struct {
	sessions Sessions
}

func NewEntryHandler(sessions Sessions) *EntryHandler {
	return &EntryHandler{sessions: sessions}
}

// List handles GET /v1/entries. Without a day range it returns the session's
// reconciled collection, newest first; with one it queries the store directly.
//
// @Summary      List time entries
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Param        from  query     string  false  "First day, YYYY-MM-DD"
// @Param        to    query     string  false  "Last day, YYYY-MM-DD"
// @Param        tz    query     string  false  "IANA time zone for day boundaries"
// @Success      200   {object}  entryListResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/entries [get]
func (h *EntryHandler) List(c echo.Context) error {
	var q entriesQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	f, err := report.ParseFilter(q.From, q.To, q.TZ, false)
	if err != nil {
		return err
	}

	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if query, ok := toEntryQuery(f); ok {
		entries, err := s.Entries.List(ctx, query)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, toEntryList(entries))
	}

	entries, err := s.Syncer.Entries(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEntryList(entries))
}

// Create handles POST /v1/entries.
//
// @Summary      Create a manual time entry
// @Tags         entries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      entryRequest  true  "Entry"
// @Success      201   {object}  domain.TimeEntry
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/entries [post]
func (h *EntryHandler) Create(c echo.Context) error {
	var req entryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	entry, err := s.Entries.Create(c.Request().Context(), toEntryInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

// Update handles PUT /v1/entries/:id. The body replaces every editable field;
// an omitted billable flag keeps the stored one.
//
// @Summary      Replace a time entry
// @Tags         entries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string        true  "Entry id"
// @Param        body  body      entryRequest  true  "Entry"
// @Success      200   {object}  domain.TimeEntry
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/entries/{id} [put]
func (h *EntryHandler) Update(c echo.Context) error {
	var req entryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	entry, err := s.Entries.Update(c.Request().Context(), c.Param("id"), toEntryInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// Delete handles DELETE /v1/entries/:id.
//
// @Summary      Delete a time entry
// @Tags         entries
// @Security     BearerAuth
// @Param        id   path  string  true  "Entry id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /v1/entries/{id} [delete]
func (h *EntryHandler) Delete(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	if err := s.Entries.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Batch handles POST /v1/entries/batch. Either every row is stored or none is;
// a rejection names the first failing row.
//
// @Summary      Submit several entries at once
// @Tags         entries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      batchRequest  true  "Rows"
// @Success      201   {object}  entryListResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/entries/batch [post]
func (h *EntryHandler) Batch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	entries, err := s.Batch.Submit(c.Request().Context(), toBatchRows(req.Entries))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toEntryList(entries))
}
