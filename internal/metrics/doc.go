// Package metrics provides Prometheus instrumentation for the thumbnail cache.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "thumbcache_".
//
// # Metric Categories
//
// ## Request Metrics
//
//   - RequestsTotal: lookups by variant and result (hit, miss_new, miss_pending, empty, rejected)
//   - InFlight: keys currently undergoing generation
//   - Cancellations: soft cancellations of in-flight keys
//
// ## Generation Metrics
//
//   - GenerationsTotal: completed tasks by variant and status (success, expired, error)
//   - GenerationDuration: task duration by variant
//   - PoolQueueDepth, PoolWorkers: worker pool occupancy
//   - ImageDecodeByFormat: decodes by sniffed source format
//
// ## Store Metrics
//
//   - StoreBytes, StoreEntries, StoreBudget: refreshed by the Collector
//   - Evictions: evicted entries by reason (cost, age, clear, remove)
//   - SweepsTotal: age sweeps run
//
// ## Notification Metrics
//
//   - EventsPublished: notifications by kind (loaded, failed)
//   - EventsDropped: notifications lost to a full subscriber buffer
//   - Subscribers: active subscriptions
//
// ## Filesystem and Memory Metrics
//
// Filesystem metrics are recorded through the filesystem.Observer returned by
// NewFilesystemObserver. Memory metrics are written by the memory monitor.
//
// # Usage
//
// Call InitializeMetrics once at startup so that every label combination is
// exported from the first scrape, then expose promhttp.Handler on /metrics.
package metrics
