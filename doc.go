// Package main runs thumbcache, an HTTP service that serves cached
// thumbnails for the files under a media directory.
//
// Requests never wait for decoding. A cold request returns a placeholder
// tile at once and queues generation on a background worker pool. Once the
// thumbnail is ready, later requests are served from a cost-bounded LRU, and
// subscribers to /api/events are told that the tile can be fetched again.
//
// # Application Lifecycle
//
//  1. Memory Configuration: sets GOMEMLIMIT from environment or cgroup limits
//  2. Configuration Loading: reads environment variables and validates MEDIA_DIR
//  3. Metrics: registers Prometheus collectors and pre-populates label sets
//  4. Component Initialization:
//     - Memory Monitor: pauses generation under memory pressure (when a limit is set)
//     - libvips: enabled for decoding when THUMBNAIL_VIPS is true
//     - Thumbnail Service: store, worker pool, expiry sweeper and event bus
//     - Metrics Collector: copies cache stats into gauges every 15 seconds
//  5. HTTP Server Setup: configures routes and middleware, then starts the server
//  6. Graceful Shutdown: handles SIGINT/SIGTERM and drains the pipeline
//
// # Environment Variables
//
//	MEDIA_DIR                 Root directory of source media (default /media)
//	PORT                      HTTP listen port (default 8080)
//	THUMBNAIL_CACHE_BUDGET    Store budget in bytes, K/M/G suffixes allowed (default 128MiB)
//	THUMBNAIL_MAX_AGE         Age after which the sweeper evicts entries (default 30m)
//	THUMBNAIL_SWEEP_INTERVAL  How often the sweeper runs, 0 disables it (default 10m)
//	THUMBNAIL_WORKERS         Generation worker count (default derived from CPUs)
//	THUMBNAIL_VIPS            Use libvips for decoding (default false)
//	METRICS_ENABLED           Expose /metrics (default true)
//	LOG_HEALTH_CHECKS         Log health probe requests (default true)
//	LOG_LEVEL, DEBUG          Log verbosity
//	MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT  Memory limit configuration
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the health endpoint starts reporting 503, the HTTP
// server stops accepting connections, queued generation tasks drain, and
// event subscribers are disconnected.
package main
