package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"thumbcache/internal/logging"
	"thumbcache/internal/memory"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

const (
	defaultCacheBudget   int64 = 128 << 20
	defaultMaxAge              = 30 * time.Minute
	defaultSweepInterval       = 10 * time.Minute
)

// Config holds all application configuration
type Config struct {
	MediaDir        string
	Port            string
	CacheBudget     int64
	MaxAge          time.Duration
	SweepInterval   time.Duration
	VipsEnabled     bool
	MetricsEnabled  bool
	LogHealthChecks bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()
	loadEnvFile(getEnv("ENV_FILE", ".env"))

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	mediaDir := getEnv("MEDIA_DIR", "/media")
	port := getEnv("PORT", "8080")
	budgetStr := getEnv("THUMBNAIL_CACHE_BUDGET", strconv.FormatInt(defaultCacheBudget, 10))
	maxAgeStr := getEnv("THUMBNAIL_MAX_AGE", "30m")
	sweepStr := getEnv("THUMBNAIL_SWEEP_INTERVAL", "10m")
	workersStr := getEnv("THUMBNAIL_WORKERS", "auto")
	vipsEnabled := getEnvBool("THUMBNAIL_VIPS", false)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)

	logging.Info("  MEDIA_DIR:                 %s", mediaDir)
	logging.Info("  PORT:                      %s", port)
	logging.Info("  THUMBNAIL_CACHE_BUDGET:    %s", budgetStr)
	logging.Info("  THUMBNAIL_MAX_AGE:         %s", maxAgeStr)
	logging.Info("  THUMBNAIL_SWEEP_INTERVAL:  %s", sweepStr)
	logging.Info("  THUMBNAIL_WORKERS:         %s", workersStr)
	logging.Info("  THUMBNAIL_VIPS:            %v", vipsEnabled)
	logging.Info("  METRICS_ENABLED:           %v", metricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:         %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:                 %s", logging.GetLevel())

	budget, err := parseBytes(budgetStr)
	if err != nil || budget <= 0 {
		logging.Warn("  Invalid THUMBNAIL_CACHE_BUDGET, using default: %d", defaultCacheBudget)
		budget = defaultCacheBudget
	}

	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil || maxAge <= 0 {
		logging.Warn("  Invalid THUMBNAIL_MAX_AGE, using default: 30m")
		maxAge = defaultMaxAge
	}

	sweepInterval, err := time.ParseDuration(sweepStr)
	if err != nil || sweepInterval < 0 {
		logging.Warn("  Invalid THUMBNAIL_SWEEP_INTERVAL, using default: 10m")
		sweepInterval = defaultSweepInterval
	} else if sweepInterval == 0 {
		logging.Info("  Expiry sweeper disabled")
	}

	// workers.Count reads THUMBNAIL_WORKERS itself; this only validates it
	if workersStr != "auto" {
		if n, err := strconv.Atoi(workersStr); err != nil || n <= 0 {
			logging.Warn("  Invalid THUMBNAIL_WORKERS, sizing from GOMAXPROCS")
		}
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	mediaDir, err = filepath.Abs(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	logging.Info("  Media directory (absolute): %s", mediaDir)

	if err := checkDirectory(mediaDir); err != nil {
		return nil, fmt.Errorf("media directory error: %w", err)
	}

	return &Config{
		MediaDir:        mediaDir,
		Port:            port,
		CacheBudget:     budget,
		MaxAge:          maxAge,
		SweepInterval:   sweepInterval,
		VipsEnabled:     vipsEnabled,
		MetricsEnabled:  metricsEnabled,
		LogHealthChecks: logHealthChecks,
	}, nil
}

// parseBytes accepts a plain byte count or a number with a suffix. KB, MB
// and GB are read as binary multiples, the same as KiB, MiB and GiB.
func parseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	multipliers := []struct {
		suffix string
		mult   int64
	}{
		{"GiB", 1 << 30}, {"MiB", 1 << 20}, {"KiB", 1 << 10},
		{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10},
		{"G", 1 << 30}, {"M", 1 << 20}, {"K", 1 << 10},
		{"B", 1},
	}
	for _, m := range multipliers {
		if strings.HasSuffix(strings.ToUpper(s), strings.ToUpper(m.suffix)) {
			n, err := strconv.ParseInt(strings.TrimSpace(s[:len(s)-len(m.suffix)]), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid size %q: %w", s, err)
			}
			return n * m.mult, nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}

// loadEnvFile merges variables from a dotenv file into the environment.
// Variables already set in the process environment win.
func loadEnvFile(path string) {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Debug("No %s file found; using process environment only", path)
			return
		}
		logging.Warn("Could not read %s: %v", path, err)
		return
	}
	logging.Info("Loaded environment from %s", path)
}

// LogCacheInit logs the thumbnail cache configuration
func LogCacheInit(config *Config, workers int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("THUMBNAIL CACHE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Budget:          %s", formatSize(config.CacheBudget))
	logging.Info("  Max age:         %v", config.MaxAge)
	logging.Info("  Sweep interval:  %v", config.SweepInterval)
	logging.Info("  Workers:         %d", workers)
}

// LogVipsInit logs whether the libvips decode fallback is in use
func LogVipsInit(enabled bool, err error) {
	switch {
	case !enabled:
		logging.Info("  libvips:         DISABLED (set THUMBNAIL_VIPS=true to enable)")
	case err != nil:
		logging.Warn("  libvips:         UNAVAILABLE (%v)", err)
	default:
		logging.Info("  [OK] libvips decode fallback enabled")
	}
}

// LogMemoryConfig logs the result of memory limit configuration
func LogMemoryConfig(result memory.ConfigResult) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if !result.Configured {
		logging.Info("  No memory limit configured (set MEMORY_LIMIT or GOMEMLIMIT)")
		logging.Info("  Worker backpressure: DISABLED")
		return
	}
	logging.Info("  Source:          %s", result.Source)
	if result.ContainerLimit > 0 {
		logging.Info("  Container limit: %s", formatSize(result.ContainerLimit))
		logging.Info("  Ratio:           %.2f", result.Ratio)
	}
	logging.Info("  GOMEMLIMIT:      %s", formatSize(result.GoMemLimit))
	logging.Info("  Worker backpressure: ENABLED")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Thumbnails:    http://0.0.0.0:%s/api/thumbnail/", config.Port)
	logging.Info("    Events:        http://0.0.0.0:%s/api/events", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
  _   _                     _                     _
 | |_| |__  _   _ _ __ ___ | |__   ___ __ _  ___| |__   ___
 | __| '_ \| | | | '_ ' _ \| '_ \ / __/ _' |/ __| '_ \ / _ \
 | |_| | | | |_| | | | | | | |_) | (_| (_| | (__| | | |  __/
  \__|_| |_|\__,_|_| |_| |_|_.__/ \___\__,_|\___|_| |_|\___|

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

// checkDirectory verifies path is an existing directory. The media
// directory is mounted, never created.
func checkDirectory(path string) error {
	logging.Debug("  Checking media directory: %s", path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func formatSize(b int64) string {
	switch {
	case b >= 1<<30 && b%(1<<30) == 0:
		return fmt.Sprintf("%d GiB", b>>30)
	case b >= 1<<20 && b%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", b>>20)
	case b >= 1<<10 && b%(1<<10) == 0:
		return fmt.Sprintf("%d KiB", b>>10)
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
