package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbcache_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Request coordination metrics
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_requests_total",
			Help: "Total number of thumbnail lookups by outcome",
		},
		[]string{"variant", "result"}, // hit, miss_new, miss_pending, empty, rejected
	)

	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_inflight",
			Help: "Number of cache keys currently undergoing generation",
		},
	)

	Cancellations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbcache_cancellations_total",
			Help: "Total number of soft cancellations of in-flight keys",
		},
	)
)

// Generation metrics
var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_generations_total",
			Help: "Total number of generation tasks completed",
		},
		[]string{"variant", "status"}, // success, expired, error
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbcache_generation_duration_seconds",
			Help:    "Generation task duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"variant"},
	)

	PoolQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_pool_queue_depth",
			Help: "Number of generation tasks waiting for a worker",
		},
	)

	PoolWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_pool_workers",
			Help: "Number of generation workers",
		},
	)

	ImageDecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_image_decode_total",
			Help: "Total number of source decodes by detected format",
		},
		[]string{"format"},
	)
)

// Store metrics
var (
	StoreBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_store_bytes",
			Help: "Approximate decoded size of all cached bitmaps in bytes",
		},
	)

	StoreEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_store_entries",
			Help: "Number of bitmaps in the cache",
		},
	)

	StoreBudget = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_store_budget_bytes",
			Help: "Configured cache cost budget in bytes",
		},
	)

	Evictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_evictions_total",
			Help: "Total number of evicted cache entries by reason",
		},
		[]string{"reason"}, // cost, age, clear, remove
	)

	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbcache_sweeps_total",
			Help: "Total number of age sweeps run",
		},
	)
)

// Notification metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_events_published_total",
			Help: "Total number of load notifications published",
		},
		[]string{"kind"}, // loaded, failed
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbcache_events_dropped_total",
			Help: "Total number of notifications dropped because a subscriber buffer was full",
		},
	)

	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_subscribers",
			Help: "Number of active notification subscribers",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbcache_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations on source media",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_filesystem_retry_attempts_total",
			Help: "Total number of retries after a stale NFS file handle",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_filesystem_retry_success_total",
			Help: "Total number of operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_filesystem_retry_failures_total",
			Help: "Total number of operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbcache_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors seen",
		},
		[]string{"operation"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_memory_usage_ratio",
			Help: "Heap allocation as a ratio of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbcache_memory_paused",
			Help: "Whether generation is paused due to memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbcache_memory_gc_pauses_total",
			Help: "Total number of times generation paused and forced a GC",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbcache_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
