// Package notify wraps repositories so every successful write emits a change
// notification. Publish failures are logged and never fail the write: the
// notification is only a latency hint for other sessions.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
)

type notifier struct {
	pub    ports.ChangePublisher
	clock  domain.Clock
	logger zerolog.Logger
}

func (n notifier) emit(ctx context.Context, table domain.Table, typ domain.ChangeType, recordID, userID string) {
	ev := domain.NewChangeEvent(table, typ, recordID, userID, n.clock.Now())
	if err := n.pub.Publish(ctx, ev); err != nil {
		n.logger.Warn().Err(err).
			Str("table", string(table)).
			Str("type", string(typ)).
			Str("user_id", userID).
			Msg("change notification not sent")
	}
}

func newNotifier(pub ports.ChangePublisher, clock domain.Clock, logger zerolog.Logger) notifier {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return notifier{pub: pub, clock: clock, logger: logger}
}

// Timers notifies on active_timers writes.
type Timers struct {
	ports.TimerRepository
	n notifier
}

func NewTimers(inner ports.TimerRepository, pub ports.ChangePublisher, clock domain.Clock, logger zerolog.Logger) *Timers {
	return &Timers{TimerRepository: inner, n: newNotifier(pub, clock, logger)}
}

func (t *Timers) Insert(ctx context.Context, timer *domain.ActiveTimer) error {
	if err := t.TimerRepository.Insert(ctx, timer); err != nil {
		return err
	}
	t.n.emit(ctx, domain.TableActiveTimers, domain.ChangeInsert, timer.ID, timer.UserID)
	return nil
}

func (t *Timers) Delete(ctx context.Context, id, userID string) error {
	if err := t.TimerRepository.Delete(ctx, id, userID); err != nil {
		return err
	}
	t.n.emit(ctx, domain.TableActiveTimers, domain.ChangeDelete, id, userID)
	return nil
}

// Entries notifies on time_entries writes.
type Entries struct {
	ports.EntryRepository
	n notifier
}

func NewEntries(inner ports.EntryRepository, pub ports.ChangePublisher, clock domain.Clock, logger zerolog.Logger) *Entries {
	return &Entries{EntryRepository: inner, n: newNotifier(pub, clock, logger)}
}

func (e *Entries) Insert(ctx context.Context, entry *domain.TimeEntry) error {
	if err := e.EntryRepository.Insert(ctx, entry); err != nil {
		return err
	}
	e.n.emit(ctx, domain.TableTimeEntries, domain.ChangeInsert, entry.ID, entry.UserID)
	return nil
}

// InsertMany emits one notification for the whole batch; subscribers only
// invalidate, so the record id carries no meaning here.
func (e *Entries) InsertMany(ctx context.Context, entries []*domain.TimeEntry) error {
	if err := e.EntryRepository.InsertMany(ctx, entries); err != nil {
		return err
	}
	if len(entries) > 0 {
		e.n.emit(ctx, domain.TableTimeEntries, domain.ChangeInsert, "", entries[0].UserID)
	}
	return nil
}

func (e *Entries) Update(ctx context.Context, entry *domain.TimeEntry) error {
	if err := e.EntryRepository.Update(ctx, entry); err != nil {
		return err
	}
	e.n.emit(ctx, domain.TableTimeEntries, domain.ChangeUpdate, entry.ID, entry.UserID)
	return nil
}

func (e *Entries) Delete(ctx context.Context, id, userID string) error {
	if err := e.EntryRepository.Delete(ctx, id, userID); err != nil {
		return err
	}
	e.n.emit(ctx, domain.TableTimeEntries, domain.ChangeDelete, id, userID)
	return nil
}
