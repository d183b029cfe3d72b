package ports

import (
	"context"

	"github.com/tickwise/timetrack/internal/core/domain"
)

// TimerRepository persists active timers.
type TimerRepository interface {
	// FindByUser returns the user's active timer, or domain.ErrNoActiveTimer.
	// When more than one row exists for the user the most recently started wins.
	FindByUser(ctx context.Context, userID string) (*domain.ActiveTimer, error)
	// Insert stores a new timer. A store-level uniqueness violation on the user
	// is reported as domain.ErrTimerRunning.
	Insert(ctx context.Context, t *domain.ActiveTimer) error
	// Delete removes the timer by id, scoped to the owning user.
	Delete(ctx context.Context, id, userID string) error
}
