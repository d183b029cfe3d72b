package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = time.Hour

// Deduper remembers which change events a consumer has already applied.
// Key format: dedup:<consumer>:<event_id>
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeduper(client *redis.Client) *Deduper {
	return &Deduper{client: client, ttl: dedupTTL}
}

// Seen marks the event as processed and reports whether it already was.
// Check and mark are one SETNX so concurrent deliveries cannot both pass.
func (d *Deduper) Seen(ctx context.Context, consumer, eventID string) (bool, error) {
	fresh, err := d.client.SetNX(ctx, dedupKey(consumer, eventID), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return !fresh, nil
}

func dedupKey(consumer, eventID string) string {
	return fmt.Sprintf("dedup:%s:%s", consumer, eventID)
}
