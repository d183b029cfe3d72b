// Package session hosts one live cache and sync loop per user.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickwise/timetrack/internal/core/cache"
	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
	"github.com/tickwise/timetrack/internal/core/report"
	"github.com/tickwise/timetrack/internal/core/service"
	"github.com/tickwise/timetrack/internal/core/syncer"
	"github.com/tickwise/timetrack/internal/metrics"
)

const DefaultIdleTimeout = 30 * time.Minute

// Deps are shared by every session.
type Deps struct {
	Timers    ports.TimerRepository
	Entries   ports.EntryRepository
	Directory ports.Directory
	Feed      ports.ChangeFeed   // optional
	Dedup     ports.EventDeduper // optional
	Renderer  service.DocumentRenderer
	Clock     domain.Clock
}

type Config struct {
	Sync        syncer.Config
	IdleTimeout time.Duration
	PageSize    int
}

// Session is one user's cache, sync loop and the services bound to them.
type Session struct {
	UserID  string
	Cache   *cache.Cache
	Syncer  *syncer.Syncer
	Timers  *service.TimerService
	Entries *service.EntryService
	Batch   *service.BatchService
	Reports *service.ReportService

	cancel   context.CancelFunc
	done     chan struct{}
	lastUsed atomic.Int64
}

// Touch marks the session as in use.
func (s *Session) Touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// Done is closed once the sync loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Manager creates sessions on first use and tears them down when idle.
type Manager struct {
	deps   Deps
	cfg    Config
	logger zerolog.Logger

	base     context.Context
	stopBase context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

func NewManager(deps Deps, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = report.DefaultPageSize
	}
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock{}
	}
	base, stop := context.WithCancel(context.Background())
	return &Manager{
		deps:     deps,
		cfg:      cfg,
		logger:   logger,
		base:     base,
		stopBase: stop,
		sessions: make(map[string]*Session),
	}
}

// Get returns the user's session, starting it if needed. A new session is
// returned only after its initial re-fetch so callers never see a blank cache.
func (m *Manager) Get(ctx context.Context, userID string) (*Session, error) {
	s, err := m.acquire(userID)
	if err != nil {
		return nil, err
	}
	select {
	case <-s.Syncer.Ready():
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// acquire finds or starts the user's session and touches it before the lock
// is released, so reap never sees a session that is being handed out as idle.
func (m *Manager) acquire(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, domain.ErrSessionClosed
	}
	s, ok := m.sessions[userID]
	if !ok {
		s = m.start(userID)
		m.sessions[userID] = s
	}
	s.Touch()
	return s, nil
}

func (m *Manager) start(userID string) *Session {
	c := cache.New()
	log := m.logger.With().Str("user_id", userID).Logger()
	sy := syncer.New(userID, c, syncer.Deps{
		Timers:  m.deps.Timers,
		Entries: m.deps.Entries,
		Feed:    m.deps.Feed,
		Dedup:   m.deps.Dedup,
	}, m.cfg.Sync, log)

	ctx, cancel := context.WithCancel(m.base)
	s := &Session{
		UserID:  userID,
		Cache:   c,
		Syncer:  sy,
		Timers:  service.NewTimerService(userID, m.deps.Timers, m.deps.Entries, m.deps.Directory, c, m.deps.Clock, log),
		Entries: service.NewEntryService(userID, m.deps.Entries, m.deps.Directory, c, m.deps.Clock, log),
		Batch:   service.NewBatchService(userID, m.deps.Entries, m.deps.Directory, c, m.deps.Clock, log),
		Reports: service.NewReportService(sy, m.deps.Directory, m.deps.Renderer, m.cfg.PageSize, log),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		sy.Run(ctx)
	}()

	metrics.ActiveSessions.Inc()
	log.Info().Msg("session started")
	return s
}

// End tears down the user's session, if any, and waits for its sync loop.
func (m *Manager) End(userID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.stop(s)
	return true
}

func (m *Manager) stop(s *Session) {
	s.cancel()
	<-s.done
	metrics.ActiveSessions.Dec()
	m.logger.Info().Str("user_id", s.UserID).Msg("session ended")
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run reaps idle sessions until ctx ends, then tears every session down.
// Get fails with domain.ErrSessionClosed afterwards.
func (m *Manager) Run(ctx context.Context) {
	interval := m.cfg.IdleTimeout / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case now := <-ticker.C:
			m.reap(now)
		}
	}
}

func (m *Manager) reap(now time.Time) {
	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.idleSince()) >= m.cfg.IdleTimeout {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.stop(s)
	}
	if len(idle) > 0 {
		m.logger.Debug().Int("reaped", len(idle)).Msg("idle sessions reaped")
	}
}

func (m *Manager) shutdown() {
	m.mu.Lock()
	m.closed = true
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	m.stopBase()
	for _, s := range all {
		<-s.done
		metrics.ActiveSessions.Dec()
	}
	m.logger.Info().Int("sessions", len(all)).Msg("session manager stopped")
}
