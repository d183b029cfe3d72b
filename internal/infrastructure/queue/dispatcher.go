package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
	"github.com/tickwise/timetrack/internal/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
	publishTimeout = 2 * time.Second
)

// ErrQueueFull is returned by Publish when the owning worker's buffer is full.
// The notification is dropped; subscribers still converge by polling.
var ErrQueueFull = errors.New("change queue full")

// Dispatcher fans change notifications out to a fixed set of workers, sharded
// by user id so one user's notifications are published in write order.
// It satisfies ports.ChangePublisher and never blocks the writer.
type Dispatcher struct {
	workers []chan domain.ChangeEvent
	target  ports.ChangePublisher
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, target ports.ChangePublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.ChangeEvent, numWorkers),
		target:  target,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ChangeEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Publish queues ev for its user's worker.
func (d *Dispatcher) Publish(_ context.Context, ev domain.ChangeEvent) error {
	id := d.shardIndex(ev.UserID)
	select {
	case d.workers[id] <- ev:
		metrics.ChangeQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(d.workers[id])))
		return nil
	default:
		metrics.ChangesPublishedTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("user_id", ev.UserID).Int("worker_id", id).Msg("change queue full, dropping notification")
		return ErrQueueFull
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ChangeEvent) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			metrics.ChangeQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

			pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			err := d.target.Publish(pubCtx, ev)
			cancel()
			if err != nil {
				metrics.ChangesPublishedTotal.WithLabelValues("error").Inc()
				d.log.Error().Err(err).
					Str("user_id", ev.UserID).
					Str("table", string(ev.Table)).
					Int("worker_id", id).
					Msg("change publish failed")
				continue
			}
			metrics.ChangesPublishedTotal.WithLabelValues("ok").Inc()
		}
	}
}
