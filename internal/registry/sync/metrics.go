package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_sync_runs_total",
		Help: "Completed forward-sync passes.",
	})
	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "registry_sync_duration_seconds",
		Help:    "Duration of forward-sync passes.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_deregistration_sweep_runs_total",
		Help: "Completed deregistration sweep passes.",
	})
	assetsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_assets_processed_total",
		Help: "Assets handled by the per-asset upsert, by result.",
	}, []string{"result"})
	entriesDeregisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_entries_deregistered_total",
		Help: "Entries flipped to deregistered by the burn sweep.",
	})
	sourceErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_source_errors_total",
		Help: "Per-source reconciliation failures.",
	})
)

const (
	resultCreated      = "created"
	resultUpdated      = "updated"
	resultDeregistered = "deregistered"
	resultSkipped      = "skipped"
	resultError        = "error"
)
