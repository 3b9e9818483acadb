// Package metrics holds the Prometheus collectors of the sync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRunsTotal counts finished sync cycles by horizon and status.
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spielebasar",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of sync cycles by horizon and status",
		},
		[]string{"horizon", "status"},
	)

	SyncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spielebasar",
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Duration of sync cycles in seconds",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"horizon"},
	)

	// RecordOutcomes counts reconciled records by outcome and skip reason.
	RecordOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spielebasar",
			Subsystem: "sync",
			Name:      "record_outcomes_total",
			Help:      "Reconciled records by outcome and reason",
		},
		[]string{"horizon", "outcome", "reason"},
	)

	OrphansPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spielebasar",
			Subsystem: "sync",
			Name:      "orphans_purged_total",
			Help:      "Matches removed because a full-horizon cycle no longer saw them",
		},
	)

	CollectorMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spielebasar",
			Subsystem: "collector",
			Name:      "mismatches_total",
			Help:      "Collections whose unique record count differed from the reported total",
		},
		[]string{"horizon"},
	)

	CollectorFailedPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spielebasar",
			Subsystem: "collector",
			Name:      "failed_pages_total",
			Help:      "Result pages that could not be fetched",
		},
		[]string{"horizon"},
	)

	// UpstreamRequests tracks calls to the referee portal.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spielebasar",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Requests to the referee portal by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	SchedulerSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spielebasar",
			Subsystem: "scheduler",
			Name:      "skipped_ticks_total",
			Help:      "Job ticks skipped by horizon and reason",
		},
		[]string{"horizon", "reason"},
	)

	SchedulerRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "spielebasar",
			Subsystem: "scheduler",
			Name:      "job_running",
			Help:      "1 while the job for a horizon is running",
		},
		[]string{"horizon"},
	)
)
