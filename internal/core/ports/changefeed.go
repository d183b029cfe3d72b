package ports

import (
	"context"

	"github.com/tickwise/timetrack/internal/core/domain"
)

// Subscription is a live stream of change events. Events is closed when the
// stream ends, for whatever reason.
type Subscription interface {
	Events() <-chan domain.ChangeEvent
	Close() error
}

// ChangeFeed delivers owner-scoped change notifications. No ordering or
// delivery guarantee; a subscription may stop silently.
type ChangeFeed interface {
	Subscribe(ctx context.Context, table domain.Table, userID string) (Subscription, error)
}

// ChangePublisher announces committed writes to the feed.
type ChangePublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// EventDeduper reports whether an event id has already been handled by a consumer.
type EventDeduper interface {
	Seen(ctx context.Context, consumer, eventID string) (bool, error)
}
