package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tickwise/timetrack/internal/core/domain"
)

const streamKeepAlive = 15 * time.Second

// TimerHandler exposes the running timer of the authenticated user.
type TimerHandler struct {
	sessions Sessions
	clock    domain.Clock
}

func NewTimerHandler(sessions Sessions, clock domain.Clock) *TimerHandler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &TimerHandler{sessions: sessions, clock: clock}
}

// Get handles GET /v1/timer.
//
// @Summary      Current timer state
// @Tags         timer
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  timerResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/timer [get]
func (h *TimerHandler) Get(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTimerResponse(s.Timers.Current(), h.clock.Now()))
}

// Stream handles GET /v1/timer/stream as server-sent events. Every change of
// the cached timer state is pushed as a "timer" event; comments keep idle
// connections open.
//
// @Summary      Stream timer state changes
// @Tags         timer
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {object}  timerResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/timer/stream [get]
func (h *TimerHandler) Stream(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}

	updates, cancel := s.Cache.Subscribe()
	defer cancel()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ping := time.NewTicker(streamKeepAlive)
	defer ping.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.Done():
			return nil
		case <-ping.C:
			s.Touch()
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			s.Touch()
			data, err := json.Marshal(toTimerResponse(snap, h.clock.Now()))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: timer\ndata: %s\n\n", data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

// Start handles POST /v1/timer/start.
//
// @Summary      Start a timer
// @Description  Fails with 409 when a timer is already running for the user.
// @Tags         timer
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      startTimerRequest  false  "Project, task and description"
// @Success      201   {object}  domain.ActiveTimer
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/timer/start [post]
func (h *TimerHandler) Start(c echo.Context) error {
	var req startTimerRequest
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
	timer, err := s.Timers.Start(c.Request().Context(), toStartInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, timer)
}

// Stop handles POST /v1/timer/stop. The running timer becomes a time entry.
//
// @Summary      Stop the running timer
// @Tags         timer
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  domain.TimeEntry
// @Failure      409  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /v1/timer/stop [post]
func (h *TimerHandler) Stop(c echo.Context) error {
	s, err := currentSession(c, h.sessions)
	if err != nil {
		return err
	}
	entry, err := s.Timers.Stop(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}
