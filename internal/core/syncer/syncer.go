// Package syncer keeps a session's cache eventually consistent with the store.
//
// Two independent paths write into the same cache:
//
//	push: change notifications trigger a re-fetch (timer) or invalidation (entries)
//	poll: fixed-interval timer re-fetch and entry invalidation
//
// Push is a latency hint only. Correctness never depends on it: with the feed
// down the cache still converges within one poll interval.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tickwise/timetrack/internal/core/cache"
	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
	"github.com/tickwise/timetrack/internal/metrics"
)

const (
	DefaultTimerInterval   = 10 * time.Second
	DefaultEntriesInterval = 15 * time.Second

	// fetchTimeout bounds a shared entries fetch, which outlives the caller
	// that started it.
	fetchTimeout = 10 * time.Second
)

const (
	triggerInitial = "initial"
	triggerPush    = "push"
	triggerPoll    = "poll"
	triggerRead    = "read"
)

// Config sets the poll intervals. Zero values fall back to the defaults.
type Config struct {
	TimerInterval   time.Duration
	EntriesInterval time.Duration
}

// Deps are the collaborators a Syncer reads from. Feed and Dedup may be nil;
// without a feed the syncer runs on polling alone.
type Deps struct {
	Timers  ports.TimerRepository
	Entries ports.EntryRepository
	Feed    ports.ChangeFeed
	Dedup   ports.EventDeduper
}

// Syncer reconciles one user's cache with authoritative state.
type Syncer struct {
	userID   string
	consumer string
	deps     Deps
	cache    *cache.Cache
	cfg      Config
	log      zerolog.Logger

	// collapses concurrent entry reads from request handlers
	entriesGroup singleflight.Group

	ready     chan struct{}
	readyOnce sync.Once

	// owned by the Run goroutine
	degraded bool
}

// New returns a Syncer for userID writing into c.
func New(userID string, c *cache.Cache, deps Deps, cfg Config, log zerolog.Logger) *Syncer {
	if cfg.TimerInterval <= 0 {
		cfg.TimerInterval = DefaultTimerInterval
	}
	if cfg.EntriesInterval <= 0 {
		cfg.EntriesInterval = DefaultEntriesInterval
	}
	consumer := domain.NewID()
	return &Syncer{
		userID:   userID,
		consumer: consumer,
		deps:     deps,
		cache:    c,
		cfg:      cfg,
		ready:    make(chan struct{}),
		log:      log.With().Str("user_id", userID).Str("consumer", consumer).Logger(),
	}
}

// Run subscribes, performs an immediate full re-fetch, then serves both paths
// until ctx ends. On return both subscriptions and tickers are released and the
// cache is closed.
func (s *Syncer) Run(ctx context.Context) {
	defer s.cache.Close()
	defer s.setDegraded(false)
	defer s.markReady()

	var timerSub, entrySub ports.Subscription
	defer func() {
		closeSub(timerSub)
		closeSub(entrySub)
	}()

	timerSub, entrySub = s.resubscribe(ctx, timerSub, entrySub)

	s.RefreshTimer(ctx, triggerInitial)
	if _, err := s.refreshEntries(ctx, triggerInitial); err != nil {
		s.log.Warn().Err(err).Msg("initial entries fetch failed")
	}
	s.markReady()

	timerTick := time.NewTicker(s.cfg.TimerInterval)
	defer timerTick.Stop()
	entriesTick := time.NewTicker(s.cfg.EntriesInterval)
	defer entriesTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timerTick.C:
			timerSub, entrySub = s.resubscribe(ctx, timerSub, entrySub)
			s.RefreshTimer(ctx, triggerPoll)

		case <-entriesTick.C:
			s.cache.InvalidateEntries()
			metrics.SyncRefreshTotal.WithLabelValues("entries", triggerPoll, "ok").Inc()

		case ev, ok := <-events(timerSub):
			if !ok {
				s.log.Warn().Str("table", string(domain.TableActiveTimers)).Msg("change stream ended, falling back to polling")
				closeSub(timerSub)
				timerSub = nil
				s.setDegraded(true)
				continue
			}
			s.Apply(ctx, ev)

		case ev, ok := <-events(entrySub):
			if !ok {
				s.log.Warn().Str("table", string(domain.TableTimeEntries)).Msg("change stream ended, falling back to polling")
				closeSub(entrySub)
				entrySub = nil
				s.setDegraded(true)
				continue
			}
			s.Apply(ctx, ev)
		}
	}
}

// Ready is closed once the initial re-fetch has completed (or Run returned).
func (s *Syncer) Ready() <-chan struct{} {
	return s.ready
}

func (s *Syncer) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Apply reconciles the cache against a single change notification. Applying
// the same event twice leaves the cache unchanged.
func (s *Syncer) Apply(ctx context.Context, ev domain.ChangeEvent) {
	if ev.UserID != "" && ev.UserID != s.userID {
		return
	}
	if s.deps.Dedup != nil && ev.ID != "" {
		seen, err := s.deps.Dedup.Seen(ctx, s.consumer, ev.ID)
		if err != nil {
			s.log.Debug().Err(err).Str("event_id", ev.ID).Msg("dedup check failed, applying anyway")
		} else if seen {
			metrics.SyncEventsTotal.WithLabelValues(string(ev.Table), "duplicate").Inc()
			return
		}
	}
	metrics.SyncEventsTotal.WithLabelValues(string(ev.Table), "applied").Inc()

	switch ev.Table {
	case domain.TableActiveTimers:
		if ev.Type == domain.ChangeDelete {
			s.cache.ClearActiveTimerIf(ev.RecordID)
			return
		}
		s.RefreshTimer(ctx, triggerPush)
	case domain.TableTimeEntries:
		s.cache.InvalidateEntries()
	default:
		s.log.Debug().Str("table", string(ev.Table)).Msg("ignoring event for unknown table")
	}
}

// RefreshTimer re-fetches the current timer and replaces the cached one.
// Failures are logged and left for the next tick. Only the Run goroutine
// calls it outside tests.
func (s *Syncer) RefreshTimer(ctx context.Context, trigger string) {
	s.cache.SetSyncing(true)
	defer s.cache.SetSyncing(false)

	t, err := s.deps.Timers.FindByUser(ctx, s.userID)
	if errors.Is(err, domain.ErrNoActiveTimer) {
		t, err = nil, nil
	}
	if err != nil {
		metrics.SyncRefreshTotal.WithLabelValues("timer", trigger, "error").Inc()
		s.log.Warn().Err(err).Str("trigger", trigger).Msg("timer refresh failed")
		return
	}
	metrics.SyncRefreshTotal.WithLabelValues("timer", trigger, "ok").Inc()
	s.cache.SetActiveTimer(t)
}

// Entries returns the reconciled entry collection, re-fetching when stale.
// When a re-fetch fails and a previous copy exists, the previous copy is
// returned.
func (s *Syncer) Entries(ctx context.Context) ([]domain.TimeEntry, error) {
	entries, stale, ok := s.cache.Entries()
	if ok && !stale {
		return entries, nil
	}

	fresh, err := s.refreshEntries(ctx, triggerRead)
	if err != nil {
		if ok {
			s.log.Warn().Err(err).Msg("serving stale entries after failed refresh")
			return entries, nil
		}
		return nil, err
	}
	return fresh, nil
}

// refreshEntries shares one store fetch between concurrent readers. The fetch
// is detached from the caller that starts it; each caller only stops waiting
// when its own ctx ends.
func (s *Syncer) refreshEntries(ctx context.Context, trigger string) ([]domain.TimeEntry, error) {
	ch := s.entriesGroup.DoChan("entries", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		gen := s.cache.EntriesGeneration()
		entries, err := s.deps.Entries.ListByUser(fetchCtx, s.userID, ports.EntryQuery{})
		if err != nil {
			return nil, err
		}
		s.cache.SetEntries(entries, gen)
		return entries, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		metrics.SyncRefreshTotal.WithLabelValues("entries", trigger, "error").Inc()
		return nil, res.Err
	}
	metrics.SyncRefreshTotal.WithLabelValues("entries", trigger, "ok").Inc()

	entries := res.Val.([]domain.TimeEntry)
	out := make([]domain.TimeEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out, nil
}

// resubscribe opens whichever subscriptions are missing.
func (s *Syncer) resubscribe(ctx context.Context, timerSub, entrySub ports.Subscription) (ports.Subscription, ports.Subscription) {
	if s.deps.Feed == nil {
		s.setDegraded(true)
		return nil, nil
	}
	if timerSub == nil {
		timerSub = s.subscribe(ctx, domain.TableActiveTimers)
	}
	if entrySub == nil {
		entrySub = s.subscribe(ctx, domain.TableTimeEntries)
	}
	s.setDegraded(timerSub == nil || entrySub == nil)
	return timerSub, entrySub
}

func (s *Syncer) subscribe(ctx context.Context, table domain.Table) ports.Subscription {
	sub, err := s.deps.Feed.Subscribe(ctx, table, s.userID)
	if err != nil {
		s.log.Warn().Err(err).Str("table", string(table)).Msg("subscribe failed, polling only")
		return nil
	}
	return sub
}

func (s *Syncer) setDegraded(v bool) {
	if s.degraded == v {
		return
	}
	s.degraded = v
	if v {
		metrics.SyncDegradedSessions.Inc()
	} else {
		metrics.SyncDegradedSessions.Dec()
	}
	s.cache.SetDegraded(v)
}

// events returns nil for a missing subscription so select never picks it.
func events(sub ports.Subscription) <-chan domain.ChangeEvent {
	if sub == nil {
		return nil
	}
	return sub.Events()
}

func closeSub(sub ports.Subscription) {
	if sub != nil {
		_ = sub.Close()
	}
}
