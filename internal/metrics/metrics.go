// Package metrics holds the prometheus collectors of the notifier and the ops API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_tasks_created_total",
		Help: "Notification tasks created by the aggregator",
	}, []string{"cadence"})

	CursorPosition = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "notify_cursor_audit_id",
		Help: "Last audit id handed to the aggregator per cadence",
	}, []string{"cadence"})

	DeliveriesSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_deliveries_succeeded_total",
		Help: "Tasks delivered and removed from the queue",
	})

	DeliveriesEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_deliveries_empty_total",
		Help: "Tasks whose digest had nothing to report",
	})

	DeliveriesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_deliveries_failed_total",
		Help: "Task delivery attempts that failed",
	})

	SnoozeUntil = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notify_snooze_until_seconds",
		Help: "Unix time until which delivery is suspended, 0 when active",
	})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_job_runs_total",
		Help: "Scheduled job executions by outcome",
	}, []string{"job", "outcome"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notify_job_duration_seconds",
		Help:    "Duration of scheduled job executions",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"job"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_api_requests_total",
		Help: "Ops API requests by route and status",
	}, []string{"method", "route", "status"})
)

// Job outcomes
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
	OutcomeWarmup  = "warmup"
)

// ObserveJob records one job execution. Call with time.Now() at the start of the run.
func ObserveJob(job, outcome string, start time.Time) {
	JobRuns.WithLabelValues(job, outcome).Inc()
	if outcome == OutcomeOK || outcome == OutcomeError {
		JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
	}
}
