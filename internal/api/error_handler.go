package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tickwise/timetrack/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain errors
// to status codes and renders {"error": "<message>"}. Unexpected errors are
// logged and reported as a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, auth rejections).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrProjectNotFound), errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrTimerRunning):
		return http.StatusConflict, "a timer is already running"
	case errors.Is(err, domain.ErrNoActiveTimer):
		return http.StatusConflict, "no timer is running"
	case errors.Is(err, domain.ErrEntryNotFound):
		return http.StatusNotFound, "time entry not found"
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusServiceUnavailable, "server is shutting down"
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful can be sent
		return 499, "request canceled"
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
