package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
)

// ProjectHandler serves the read-only project directory.
type ProjectHandler struct {
	directory ports.Directory
}

func NewProjectHandler(directory ports.Directory) *ProjectHandler {
	return &ProjectHandler{directory: directory}
}

// List handles GET /v1/projects. With q set, projects are ranked by how
// closely their name or client matches.
//
// @Summary      List or search projects
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        q    query     string  false  "Fuzzy search over project and client names"
// @Success      200  {object}  projectListResponse
// @Router       /v1/projects [get]
func (h *ProjectHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		projects []domain.Project
		err      error
	)
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		projects, err = h.directory.Search(ctx, q)
	} else {
		projects, err = h.directory.Projects(ctx)
	}
	if err != nil {
		return err
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	return c.JSON(http.StatusOK, projectListResponse{Projects: projects, Count: len(projects)})
}
