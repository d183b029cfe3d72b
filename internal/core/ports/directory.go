package ports

import (
	"context"

	"github.com/tickwise/timetrack/internal/core/domain"
)

// Directory is the read-only project/task lookup.
type Directory interface {
	Project(ctx context.Context, id string) (*domain.Project, error)
	Task(ctx context.Context, id string) (*domain.Task, error)
	Projects(ctx context.Context) ([]domain.Project, error)
	// Search ranks projects by fuzzy similarity of name or client to query.
	Search(ctx context.Context, query string) ([]domain.Project, error)
}
