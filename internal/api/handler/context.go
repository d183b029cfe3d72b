package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tickwise/timetrack/internal/api/middleware"
	"github.com/tickwise/timetrack/internal/core/session"
)

// Sessions hands out the live session of an authenticated user.
// *session.Manager satisfies it.
type Sessions interface {
	Get(ctx context.Context, userID string) (*session.Session, error)
	End(userID string) bool
}

// ctxUserID extracts the user id injected by the Auth middleware. Its absence
// means the route was mounted without authentication.
func ctxUserID(c echo.Context) (string, error) {
	userID, _ := c.Get(middleware.UserIDKey).(string)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return userID, nil
}

// currentSession resolves the caller's session, starting it on first use.
func currentSession(c echo.Context, sessions Sessions) (*session.Session, error) {
	userID, err := ctxUserID(c)
	if err != nil {
		return nil, err
	}
	s, err := sessions.Get(c.Request().Context(), userID)
	if err != nil {
		return nil, err
	}
	return s, nil
}
