// Package cache holds the per-session projection of server state that every
// observer reads. It is the only mutable state shared between surfaces of a
// session; all writes go through the methods on Cache.
package cache

import (
	"sync"

	"github.com/tickwise/timetrack/internal/core/domain"
)

// Snapshot is the observable timer state.
type Snapshot struct {
	ActiveTimer *domain.ActiveTimer `json:"active_timer"`
	IsSyncing   bool                `json:"is_syncing"`
	// Degraded is set while the push channel is unavailable and only polling
	// keeps the cache fresh.
	Degraded bool `json:"degraded"`
}

// Cache is an observable state container with a single writer API.
type Cache struct {
	mu      sync.RWMutex
	snap    Snapshot
	entries []domain.TimeEntry
	loaded  bool
	stale   bool
	gen     uint64
	version uint64
	closed  bool
	subs    map[int]chan Snapshot
	nextSub int
}

// New returns an empty cache whose entry collection starts stale.
func New() *Cache {
	return &Cache{stale: true, subs: make(map[int]chan Snapshot)}
}

// Snapshot returns a copy of the current timer state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copySnap()
}

// ActiveTimer returns a copy of the cached timer, or nil.
func (c *Cache) ActiveTimer() *domain.ActiveTimer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.ActiveTimer.Clone()
}

// Version increases on every state change; used to detect no-op reconciliations.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// SetActiveTimer replaces the cached timer wholesale.
func (c *Cache) SetActiveTimer(t *domain.ActiveTimer) {
	c.update(func(s *Snapshot) bool {
		if s.ActiveTimer.Equal(t) {
			return false
		}
		s.ActiveTimer = t.Clone()
		return true
	})
}

// ClearActiveTimer drops the cached timer.
func (c *Cache) ClearActiveTimer() {
	c.SetActiveTimer(nil)
}

// ClearActiveTimerIf drops the cached timer only when it is the given record.
// An empty id clears unconditionally.
func (c *Cache) ClearActiveTimerIf(id string) {
	c.update(func(s *Snapshot) bool {
		if s.ActiveTimer == nil {
			return false
		}
		if id != "" && s.ActiveTimer.ID != id {
			return false
		}
		s.ActiveTimer = nil
		return true
	})
}

func (c *Cache) SetSyncing(v bool) {
	c.update(func(s *Snapshot) bool {
		if s.IsSyncing == v {
			return false
		}
		s.IsSyncing = v
		return true
	})
}

func (c *Cache) SetDegraded(v bool) {
	c.update(func(s *Snapshot) bool {
		if s.Degraded == v {
			return false
		}
		s.Degraded = v
		return true
	})
}

// Entries returns a copy of the cached collection and whether it needs a
// re-fetch. ok is false when nothing has been loaded yet.
func (c *Cache) Entries() (entries []domain.TimeEntry, stale, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneEntries(c.entries), c.stale, c.loaded
}

// EntriesGeneration identifies the collection state a fetch starts from. Any
// invalidation or optimistic insert moves it forward.
func (c *Cache) EntriesGeneration() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetEntries installs a fetched collection. The stale mark is cleared only if
// nothing invalidated the collection since gen was read.
func (c *Cache) SetEntries(entries []domain.TimeEntry, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.entries = cloneEntries(entries)
	c.loaded = true
	c.stale = gen != c.gen
}

// PrependEntry adds a just-created entry ahead of the next fetch.
func (c *Cache) PrependEntry(e domain.TimeEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, existing := range c.entries {
		if existing.ID == e.ID {
			return
		}
	}
	c.entries = append([]domain.TimeEntry{e.Clone()}, c.entries...)
	c.gen++
}

// InvalidateEntries marks the collection stale so the next read re-fetches.
func (c *Cache) InvalidateEntries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.stale = true
	c.gen++
}

// Subscribe returns a channel that always holds the latest snapshot. Slow
// readers skip intermediate states. The channel is closed by cancel or Close.
func (c *Cache) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.copySnap()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops all further mutation and releases subscribers.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

func (c *Cache) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Cache) update(mutate func(s *Snapshot) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if !mutate(&c.snap) {
		return
	}
	c.version++
	snap := c.copySnap()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (c *Cache) copySnap() Snapshot {
	s := c.snap
	s.ActiveTimer = c.snap.ActiveTimer.Clone()
	return s
}

func cloneEntries(in []domain.TimeEntry) []domain.TimeEntry {
	if in == nil {
		return nil
	}
	out := make([]domain.TimeEntry, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}
