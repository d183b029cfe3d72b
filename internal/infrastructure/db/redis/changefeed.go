package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
)

const subscriptionBuffer = 16

// ChangeFeed carries change notifications over Redis pub/sub, one channel per
// (table, user). Delivery is at-most-once; subscribers reconcile by polling.
type ChangeFeed struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewChangeFeed(client *redis.Client, logger zerolog.Logger) *ChangeFeed {
	return &ChangeFeed{client: client, logger: logger}
}

// Channel is the pub/sub channel for one user's changes to table.
// Format: changes:<table>:<user_id>
func Channel(table domain.Table, userID string) string {
	return fmt.Sprintf("changes:%s:%s", table, userID)
}

func (f *ChangeFeed) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := f.client.Publish(ctx, Channel(ev.Table, ev.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning, so
// a nil error means notifications published from now on will be delivered.
func (f *ChangeFeed) Subscribe(ctx context.Context, table domain.Table, userID string) (ports.Subscription, error) {
	ps := f.client.Subscribe(ctx, Channel(table, userID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	sub := &subscription{
		ps:   ps,
		ch:   make(chan domain.ChangeEvent, subscriptionBuffer),
		done: make(chan struct{}),
	}
	go sub.pump(ctx, f.logger.With().Str("table", string(table)).Str("user_id", userID).Logger())
	return sub, nil
}

type subscription struct {
	ps   *redis.PubSub
	ch   chan domain.ChangeEvent
	done chan struct{}
	once sync.Once
	err  error
}

func (s *subscription) Events() <-chan domain.ChangeEvent { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.ps.Close()
	})
	return s.err
}

// pump forwards decoded messages until the subscription or ctx ends, then
// closes the event channel.
func (s *subscription) pump(ctx context.Context, logger zerolog.Logger) {
	defer close(s.ch)
	msgs := s.ps.Channel()
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			ev, err := decodeEvent(msg.Payload)
			if err != nil {
				logger.Warn().Err(err).Msg("dropping malformed change event")
				continue
			}
			select {
			case s.ch <- ev:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func decodeEvent(payload string) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	if ev.Table == "" || ev.Type == "" {
		return domain.ChangeEvent{}, fmt.Errorf("decode change event: missing table or type")
	}
	return ev, nil
}
