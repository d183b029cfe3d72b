package memory

import (
	"context"
	"sync"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
)

const subscriptionBuffer = 64

// Feed is an in-process change feed. Publishing never blocks: when a
// subscriber's buffer is full the event is dropped, matching the best-effort
// contract of the real channel.
type Feed struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[*subscription]struct{})}
}

type subscription struct {
	feed   *Feed
	table  domain.Table
	userID string
	ch     chan domain.ChangeEvent
	once   sync.Once
}

func (s *subscription) Events() <-chan domain.ChangeEvent { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s)
		s.feed.mu.Unlock()
		close(s.ch)
	})
	return nil
}

func (f *Feed) Subscribe(ctx context.Context, table domain.Table, userID string) (ports.Subscription, error) {
	sub := &subscription{
		feed:   f,
		table:  table,
		userID: userID,
		ch:     make(chan domain.ChangeEvent, subscriptionBuffer),
	}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()
	return sub, nil
}

func (f *Feed) Publish(_ context.Context, ev domain.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		if sub.table != ev.Table || sub.userID != ev.UserID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
	return nil
}

// CloseAll ends every live subscription, simulating a dropped connection.
func (f *Feed) CloseAll() {
	f.mu.Lock()
	subs := make([]*subscription, 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()
	for _, s := range subs {
		_ = s.Close()
	}
}

// Subscribers returns the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
