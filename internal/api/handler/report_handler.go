package handler

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tickwise/timetrack/internal/core/report"
)

const (
	mimeCSV = "text/csv; charset=utf-8"
	mimePDF = "application/pdf"
)

// ReportHandler serves summaries and exports of the reconciled entries.
type ReportHandler struct {
	sessions Sessions
}

func NewReportHandler(sessions Sessions) *ReportHandler {
	return &ReportHandler{sessions: sessions}
}

func (h *ReportHandler) filter(c echo.Context) (report.Filter, error) {
	var q reportQuery
	if err := c.Bind(&q); err != nil {
		return report.Filter{}, echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return report.Filter{}, echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return toFilter(q)
}

// Summary handles GET /v1/reports/summary.
//
// @Summary      Total and billable time for a day range
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        from           query     string  false  "First day, YYYY-MM-DD"
// @Param        to             query     string  false  "Last day, YYYY-MM-DD"
// @Param        tz             query     string  false  "IANA time zone for day boundaries"
// @Param        billable_only  query     bool    false  "Drop non-billable entries"
// @Success      200            {object}  summaryResponse
// @Failure      422            {object}  errorResponse
// @Router       /v1/reports/summary [get]
func (h *ReportHandler) Summary(c echo.Context) error {
	f, err := h.filter(c)
	if err != nil {
		return err
	}
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	sum, err := s.Reports.Summary(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSummaryResponse(sum, f))
}

// Document handles GET /v1/reports/document: the paginated report as JSON.
//
// @Summary      Paginated report document
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        from           query     string  false  "First day, YYYY-MM-DD"
// @Param        to             query     string  false  "Last day, YYYY-MM-DD"
// @Param        tz             query     string  false  "IANA time zone for day boundaries"
// @Param        billable_only  query     bool    false  "Drop non-billable entries"
// @Success      200            {object}  report.Document
// @Failure      422            {object}  errorResponse
// @Router       /v1/reports/document [get]
func (h *ReportHandler) Document(c echo.Context) error {
	f, err := h.filter(c)
	if err != nil {
		return err
	}
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	doc, err := s.Reports.Document(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// ExportCSV handles GET /v1/reports/export.csv.
//
// @Summary      Export entries as CSV
// @Tags         reports
// @Produce      text/csv
// @Security     BearerAuth
// @Param        from           query     string  false  "First day, YYYY-MM-DD"
// @Param        to             query     string  false  "Last day, YYYY-MM-DD"
// @Param        tz             query     string  false  "IANA time zone for day boundaries"
// @Param        billable_only  query     bool    false  "Drop non-billable entries"
// @Success      200            {string}  string  "date,project,description,duration_hours,billable"
// @Failure      422            {object}  errorResponse
// @Router       /v1/reports/export.csv [get]
func (h *ReportHandler) ExportCSV(c echo.Context) error {
	f, err := h.filter(c)
	if err != nil {
		return err
	}
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.Reports.ExportCSV(c.Request().Context(), &buf, f); err != nil {
		return err
	}
	attachment(c, "time-report.csv")
	return c.Blob(http.StatusOK, mimeCSV, buf.Bytes())
}

// ExportPDF handles GET /v1/reports/export.pdf.
//
// @Summary      Export the report document as PDF
// @Tags         reports
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        from           query     string  false  "First day, YYYY-MM-DD"
// @Param        to             query     string  false  "Last day, YYYY-MM-DD"
// @Param        tz             query     string  false  "IANA time zone for day boundaries"
// @Param        billable_only  query     bool    false  "Drop non-billable entries"
// @Success      200            {file}    file
// @Failure      422            {object}  errorResponse
// @Router       /v1/reports/export.pdf [get]
func (h *ReportHandler) ExportPDF(c echo.Context) error {
	f, err := h.filter(c)
	if err != nil {
		return err
	}
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.Reports.ExportPDF(c.Request().Context(), &buf, f); err != nil {
		return err
	}
	attachment(c, "time-report.pdf")
	return c.Blob(http.StatusOK, mimePDF, buf.Bytes())
}

func attachment(c echo.Context, name string) {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
}
