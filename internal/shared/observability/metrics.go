package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ExtractDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boundary_extract_seconds",
		Help:    "Time spent extracting imports from a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	GraphModules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "boundary_graph_modules_total",
		Help: "Total number of modules in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "boundary_graph_edges_total",
		Help: "Total number of import edges in the dependency graph.",
	})

	ScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boundary_scan_seconds",
		Help:    "Time spent on full scans and incremental rechecks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boundary_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ActiveViolations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "boundary_violations_active",
		Help: "Number of boundary violations currently published.",
	})

	DiagnosticsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boundary_diagnostics_published_total",
		Help: "Total number of per-file diagnostic sets emitted to the sink.",
	})

	RechecksAbandonedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boundary_rechecks_abandoned_total",
		Help: "Total number of rechecks superseded by a newer change batch.",
	})

	WorkerTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boundary_worker_timeouts_total",
		Help: "Total number of files skipped because extraction exceeded its budget.",
	})

	PartialParsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boundary_partial_parses_total",
		Help: "Total number of files whose extraction degraded to a partial parse.",
	}, []string{"language"})
)
