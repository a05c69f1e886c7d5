package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// SyncBatchesTotal tracks upsert batches executed per stage
	SyncBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcgvault_sync_batches_total",
			Help: "Total number of upsert batches executed",
		},
		[]string{"stage", "status"}, // status: success, failed
	)

	// SyncItemsTotal tracks records successfully written per stage
	SyncItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcgvault_sync_items_total",
			Help: "Total number of records successfully written",
		},
		[]string{"stage"},
	)

	// SyncStageDuration measures stage execution duration in seconds
	SyncStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tcgvault_sync_stage_duration_seconds",
			Help:    "Sync stage execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~400s
		},
		[]string{"stage", "status"},
	)

	// SyncRunning indicates whether a full sync orchestration is in flight
	SyncRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tcgvault_sync_running",
			Help: "Whether a full sync orchestration is running (1=running, 0=idle)",
		},
	)

	// SyncRunsTotal counts orchestration runs by outcome
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcgvault_sync_runs_total",
			Help: "Total number of full sync orchestration runs",
		},
		[]string{"outcome"}, // outcome: completed, completed_with_errors, fatal, rejected
	)

	// UpstreamRequestsTotal counts upstream API fetches
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcgvault_upstream_requests_total",
			Help: "Total number of upstream catalog fetches",
		},
		[]string{"endpoint", "status"},
	)

	// PriceSnapshotsTotal counts captured price snapshots
	PriceSnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcgvault_price_snapshots_total",
			Help: "Total number of price snapshots captured",
		},
		[]string{"source"},
	)

	// CacheRequestsTotal counts query cache lookups
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcgvault_cache_requests_total",
			Help: "Total number of query cache lookups",
		},
		[]string{"result"}, // result: hit, miss
	)

	// ScheduledRunsTotal counts scheduler-triggered runs
	ScheduledRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tcgvault_scheduled_runs_total",
			Help: "Total number of scheduler-triggered runs",
		},
		[]string{"task", "status"},
	)
)

// RecordBatch records one executed batch for a stage.
func RecordBatch(stage string, failed bool) {
	status := "success"
	if failed {
		status = "failed"
	}

	SyncBatchesTotal.WithLabelValues(stage, status).Inc()
}

// RecordStage records a completed stage run.
func RecordStage(stage string, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "failed"
	}

	SyncStageDuration.WithLabelValues(stage, status).Observe(seconds)
}
