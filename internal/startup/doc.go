// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - MEDIA_DIR: Root that thumbnail paths are resolved against (default: /media)
//   - PORT: HTTP server port (default: 8080)
//   - THUMBNAIL_CACHE_BUDGET: Cache budget in bytes, K/M/G suffixes allowed (default: 128MiB)
//   - THUMBNAIL_MAX_AGE: Entries idle this long are swept (default: 30m)
//   - THUMBNAIL_SWEEP_INTERVAL: How often the sweep runs (default: 10m)
//   - THUMBNAIL_WORKERS: Generation worker count (default: max(2, GOMAXPROCS))
//   - THUMBNAIL_VIPS: Enable the libvips decode fallback (default: false)
//   - METRICS_ENABLED: Expose /metrics (default: true)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// Invalid values fall back to their defaults with a warning. A missing media
// directory is an error.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogMemoryConfig]: Memory limit configuration
//   - [LogCacheInit], [LogVipsInit]: Cache and decoder setup
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: Graceful shutdown
package startup
