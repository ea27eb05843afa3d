package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thumbcache/internal/filesystem"
	"thumbcache/internal/handlers"
	"thumbcache/internal/logging"
	"thumbcache/internal/memory"
	"thumbcache/internal/metrics"
	"thumbcache/internal/middleware"
	"thumbcache/internal/raster"
	"thumbcache/internal/startup"
	"thumbcache/internal/thumbnail"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	// Must run before the first large allocation
	memResult := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memResult)

	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	var monitor *memory.Monitor
	opts := []thumbnail.Option{}
	if memResult.Configured {
		memConfig := memory.DefaultConfig()
		memConfig.LimitBytes = memResult.GoMemLimit
		monitor = memory.NewMonitor(memConfig)
		monitor.Start()
		opts = append(opts, thumbnail.WithGate(monitor))
	}

	var vipsErr error
	if config.VipsEnabled {
		vipsErr = raster.InitVips()
	}

	cacheConfig := thumbnail.DefaultConfig()
	cacheConfig.Budget = config.CacheBudget
	cacheConfig.MaxAge = config.MaxAge
	cacheConfig.SweepInterval = config.SweepInterval

	svc := thumbnail.New(cacheConfig, opts...)
	startup.LogCacheInit(config, svc.Stats().Workers)
	startup.LogVipsInit(config.VipsEnabled, vipsErr)

	collector := metrics.NewCollector(svc, 15*time.Second)
	collector.Start()

	h := handlers.New(svc, config.MediaDir)
	router := setupRouter(h, config.MetricsEnabled)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(middleware.RequestID(router))

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // event streams stay open
		IdleTimeout:       60 * time.Second,
	}

	go handleShutdown(srv, h, svc, collector, monitor)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	// ListenAndServe returns as soon as Shutdown starts; wait for the rest
	<-shutdownDone
}

var shutdownDone = make(chan struct{})

func setupRouter(h *handlers.Handlers, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	if metricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	// Registered before the catch-all thumbnail route so they match first
	api.HandleFunc("/thumbnail/preload/{path:.*}", h.PreloadThumbnail).Methods("POST")
	api.HandleFunc("/thumbnail/inflight/{path:.*}", h.CancelLoading).Methods("DELETE")
	api.HandleFunc("/thumbnail/{path:.*}", h.GetThumbnail).Methods("GET", "HEAD")

	api.HandleFunc("/cache/stats", h.GetCacheStats).Methods("GET")
	api.HandleFunc("/cache/clear", h.ClearCache).Methods("POST")
	api.HandleFunc("/cache/budget", h.SetCacheBudget).Methods("PUT")
	api.HandleFunc("/cache/cleanup", h.CleanupOldResources).Methods("POST")

	api.HandleFunc("/events", h.StreamEvents).Methods("GET")

	return r
}

func handleShutdown(srv *http.Server, h *handlers.Handlers, svc *thumbnail.Service, collector *metrics.Collector, monitor *memory.Monitor) {
	defer close(shutdownDone)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	h.SetDraining()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Draining thumbnail pipeline")
	if err := svc.Shutdown(ctx); err != nil {
		logging.Warn("Thumbnail shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Thumbnail pipeline drained")
	}

	collector.Stop()
	if monitor != nil {
		monitor.Stop()
	}
	raster.ShutdownVips()

	startup.LogShutdownComplete()
}
