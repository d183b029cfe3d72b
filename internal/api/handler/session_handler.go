package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type SessionHandler struct {
	sessions Sessions
}

func NewSessionHandler(sessions Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// End handles DELETE /v1/session: stops the caller's sync loop and drops the
// cache. The next request starts a fresh session.
//
// @Summary      End the caller's session
// @Tags         session
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /v1/session [delete]
func (h *SessionHandler) End(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	h.sessions.End(userID)
	return c.NoContent(http.StatusNoContent)
}
