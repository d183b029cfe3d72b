// Package metrics defines and registers all custom Prometheus metrics for the
// timetrack service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "timetrack"

// ── Timer lifecycle ───────────────────────────────────────────────────────────

// TimersStartedTotal counts timers successfully started.
var TimersStartedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "timers_started_total",
		Help:      "Total number of timers started.",
	},
)

// TimerStartConflictsTotal counts starts rejected because a timer was already running.
var TimerStartConflictsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "timer_start_conflicts_total",
		Help:      "Total number of start requests rejected by the one-timer-per-user rule.",
	},
)

// TimersStoppedTotal counts stops that persisted an entry and removed the timer.
var TimersStoppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "timers_stopped_total",
		Help:      "Total number of timers stopped and converted to entries.",
	},
)

// TimerStopFailuresTotal counts failed stops.
// Label:
//   - step: "insert_entry" (timer left intact), "delete_timer" (entry persisted, timer left)
//     or "timer_gone" (timer stopped elsewhere mid-stop, entry removed)
var TimerStopFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "timer_stop_failures_total",
		Help:      "Total number of stop operations that failed, by failing step.",
	},
	[]string{"step"},
)

// ── Entries ───────────────────────────────────────────────────────────────────

// EntriesWrittenTotal counts entry writes.
// Label:
//   - op: "stop", "create", "update", "delete", "batch"
var EntriesWrittenTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_written_total",
		Help:      "Total number of time entry writes, by operation.",
	},
	[]string{"op"},
)

// BatchRowsTotal counts batch rows by outcome ("accepted", "rejected").
var BatchRowsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_rows_total",
		Help:      "Total number of batch rows submitted, by outcome.",
	},
	[]string{"outcome"},
)

// ── Synchronization ───────────────────────────────────────────────────────────

// SyncRefreshTotal counts reconciliation fetches.
// Labels:
//   - kind: "timer" or "entries"
//   - trigger: "initial", "push", "poll", "read"
//   - result: "ok" or "error"
var SyncRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_refresh_total",
		Help:      "Total number of reconciliation fetches against the store.",
	},
	[]string{"kind", "trigger", "result"},
)

// SyncEventsTotal counts change notifications received.
// Labels:
//   - table: "active_timers" or "time_entries"
//   - result: "applied" or "duplicate"
var SyncEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_events_total",
		Help:      "Total number of change notifications received by sessions.",
	},
	[]string{"table", "result"},
)

// SyncDegradedSessions tracks sessions currently running on polling only.
var SyncDegradedSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_degraded_sessions",
		Help:      "Number of sessions whose push channel is currently unavailable.",
	},
)

// ActiveSessions tracks live sessions.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Number of live per-user sessions.",
	},
)

// ── Change publishing ─────────────────────────────────────────────────────────

// ChangesPublishedTotal counts change notifications handed to the feed.
// Label:
//   - result: "ok" or "error"
var ChangesPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "changes_published_total",
		Help:      "Total number of change notifications published.",
	},
	[]string{"result"},
)

// ChangeQueueDepth tracks pending notifications per publish worker.
var ChangeQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "change_queue_depth",
		Help:      "Current number of change notifications pending in each publish worker channel.",
	},
	[]string{"worker_id"},
)

// ── Reports ───────────────────────────────────────────────────────────────────

// ReportExportsTotal counts exports by format ("csv", "pdf", "document").
var ReportExportsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_exports_total",
		Help:      "Total number of report exports, by format.",
	},
	[]string{"format"},
)
