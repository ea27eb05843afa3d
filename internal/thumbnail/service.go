package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"thumbcache/internal/filesystem"
	"thumbcache/internal/logging"
	"thumbcache/internal/mediatypes"
	"thumbcache/internal/metrics"
	"thumbcache/internal/placeholder"
	"thumbcache/internal/raster"
	"thumbcache/internal/workers"
)

// ErrInvalidBudget is returned by SetCacheBudget for non-positive budgets.
var ErrInvalidBudget = errors.New("cache budget must be positive")

const (
	// DefaultBudget is the store budget in bytes.
	DefaultBudget int64 = 128 << 20
	// DefaultMaxAge is how long an unused entry survives the sweep.
	DefaultMaxAge = 30 * time.Minute
)

// originalFallbackSize is the loading tile size for full-resolution requests
// that do not state a size.
var originalFallbackSize = image.Pt(256, 256)

// Config holds the library-level settings.
type Config struct {
	Budget        int64
	MaxAge        time.Duration
	SweepInterval time.Duration // <= 0 disables the sweeper
	Workers       int           // 0 picks max(2, GOMAXPROCS)
	Captions      placeholder.Captions
}

// DefaultConfig returns the defaults used by the host process.
func DefaultConfig() Config {
	return Config{
		Budget:        DefaultBudget,
		MaxAge:        DefaultMaxAge,
		SweepInterval: DefaultSweepInterval,
		Captions:      placeholder.DefaultCaptions(),
	}
}

// Option customizes a Service.
type Option func(*options)

type options struct {
	now          func() time.Time
	exists       func(string) bool
	backend      raster.Backend
	placeholders *placeholder.Factory
	gate         workers.Gate
}

// WithClock replaces time.Now for access stamps and sweeps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithExists replaces the filesystem existence check.
func WithExists(exists func(string) bool) Option {
	return func(o *options) { o.exists = exists }
}

// WithBackend replaces the raster backend.
func WithBackend(b raster.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithPlaceholders replaces the placeholder factory.
func WithPlaceholders(f *placeholder.Factory) Option {
	return func(o *options) { o.placeholders = f }
}

// WithGate makes workers wait on gate before each task. memory.Monitor
// satisfies workers.Gate.
func WithGate(g workers.Gate) Option {
	return func(o *options) { o.gate = g }
}

// State describes what a Thumbnail call returned.
type State int

const (
	// StateHit is a cached bitmap.
	StateHit State = iota
	// StatePlaceholder is a fallback tile.
	StatePlaceholder
	// StateEmpty means no bitmap; the caller paints its own default.
	StateEmpty
)

func (s State) String() string {
	switch s {
	case StateHit:
		return "hit"
	case StatePlaceholder:
		return "placeholder"
	default:
		return "empty"
	}
}

// Stats is a snapshot of the service.
type Stats struct {
	Entries     int   `json:"entries"`
	CostBytes   int64 `json:"costBytes"`
	BudgetBytes int64 `json:"budgetBytes"`
	InFlight    int   `json:"inflight"`
	QueueDepth  int   `json:"queueDepth"`
	Workers     int   `json:"workers"`
}

// Service is the thumbnail cache. Render paths never block on IO or decode
// work; misses return a placeholder and generation happens on the pool.
type Service struct {
	cfg          Config
	now          func() time.Time
	exists       func(string) bool
	placeholders *placeholder.Factory
	generator    *Generator
	pool         *workers.Pool
	coord        *Coordinator
	bus          *bus
	sweeper      *Sweeper

	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds and starts a Service.
func New(cfg Config, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.Budget <= 0 {
		cfg.Budget = def.Budget
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}

	o := options{now: time.Now, exists: filesystem.Exists}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = raster.NewImaging()
	}
	if o.placeholders == nil {
		o.placeholders = placeholder.New(cfg.Captions)
	}

	s := &Service{
		cfg:          cfg,
		now:          o.now,
		exists:       o.exists,
		placeholders: o.placeholders,
		generator:    NewGenerator(o.backend, o.placeholders, o.exists),
		pool:         workers.NewPool(workers.ForPipeline(cfg.Workers), o.gate),
		bus:          newBus(),
	}
	s.coord = newCoordinator(NewStore(cfg.Budget, o.now), s.pool.Submit, s.generate, s.bus.publish)

	metrics.StoreBudget.Set(float64(cfg.Budget))
	metrics.PoolWorkers.Set(float64(s.pool.Size()))

	if cfg.SweepInterval > 0 {
		s.sweeper = NewSweeper(s.CleanupOldResources, cfg.SweepInterval, cfg.MaxAge)
		s.sweeper.Start()
	}

	logging.Info("Thumbnail cache ready (budget: %d bytes, workers: %d)", cfg.Budget, s.pool.Size())
	return s
}

// generate runs on a worker goroutine.
func (s *Service) generate(req Request) Result {
	res := s.generator.Generate(req)

	status := "success"
	switch {
	case !res.Success:
		status = "error"
		logging.Warn("Failed to generate %s thumbnail for %s: %v", req.Variant, req.SourcePath, res.Err)
	case res.Expired:
		status = "expired"
		logging.Debug("Source for %s thumbnail is gone: %s", req.Variant, req.SourcePath)
	}
	metrics.GenerationsTotal.WithLabelValues(req.Variant.String(), status).Inc()
	metrics.GenerationDuration.WithLabelValues(req.Variant.String()).Observe(res.Duration.Seconds())
	return res
}

// KeyFor returns the cache key for req.
func (s *Service) KeyFor(req Request) Key {
	return KeyFor(req)
}

// GetThumbnail returns a ready bitmap or a placeholder for req. It never
// blocks. A nil result means the caller should paint its own default.
func (s *Service) GetThumbnail(req Request) image.Image {
	img, _ := s.Thumbnail(req)
	return img
}

// Thumbnail is GetThumbnail reporting what kind of image was returned.
func (s *Service) Thumbnail(req Request) (image.Image, State) {
	variant := req.Variant.String()
	if req.SourcePath == "" {
		metrics.RequestsTotal.WithLabelValues(variant, "empty").Inc()
		if req.Variant == mediatypes.Avatar {
			return nil, StateEmpty
		}
		return s.placeholders.Default(req.Size, req.Variant, ""), StatePlaceholder
	}

	img, outcome := s.coord.getOrStart(KeyFor(req), req)
	metrics.RequestsTotal.WithLabelValues(variant, outcome.String()).Inc()
	if outcome == Hit {
		return img, StateHit
	}
	return s.loading(req)
}

func (s *Service) loading(req Request) (image.Image, State) {
	switch req.Variant {
	case mediatypes.Avatar:
		return nil, StateEmpty
	case mediatypes.OriginalImage:
		if req.Size.X <= 0 || req.Size.Y <= 0 {
			return s.placeholders.Loading(originalFallbackSize), StatePlaceholder
		}
	}
	return s.placeholders.Loading(req.Size), StatePlaceholder
}

// PreloadThumbnail starts generation for req without returning anything.
// Nothing happens when the file it would be rendered from is absent.
func (s *Service) PreloadThumbnail(req Request) {
	if req.SourcePath == "" {
		return
	}
	probe := req.SourcePath
	if (req.Variant == mediatypes.ImageThumbnail || req.Variant == mediatypes.VideoThumbnail) && req.OverlayIconPath != "" {
		probe = req.OverlayIconPath
	}
	if !s.exists(probe) {
		logging.Debug("Skipping preload of %s: %s does not exist", req.SourcePath, probe)
		return
	}
	_, outcome := s.coord.getOrStart(KeyFor(req), req)
	metrics.RequestsTotal.WithLabelValues(req.Variant.String(), outcome.String()).Inc()
}

// CancelLoading forgets that key is being generated. A running task still
// finishes, and its result is still cached and published. Reports whether
// the key was in flight.
func (s *Service) CancelLoading(key Key) bool {
	return s.coord.cancel(key)
}

// IsLoading reports whether key is being generated.
func (s *Service) IsLoading(key Key) bool {
	return s.coord.isInFlight(key)
}

// ClearCache drops every cached bitmap. Tasks already in flight are kept.
func (s *Service) ClearCache() {
	n := s.coord.clear()
	logging.Info("Thumbnail cache cleared (%d entries)", n)
}

// Evict removes a single cached bitmap.
func (s *Service) Evict(key Key) bool {
	return s.coord.remove(key)
}

// SetCacheBudget changes the byte budget, evicting immediately if needed.
func (s *Service) SetCacheBudget(budget int64) error {
	if budget <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBudget, budget)
	}
	evicted := s.coord.setBudget(budget)
	metrics.StoreBudget.Set(float64(budget))
	logging.Info("Thumbnail cache budget set to %d bytes (%d evicted)", budget, evicted)
	return nil
}

// CleanupOldResources evicts entries not accessed within maxAge and returns
// how many were removed.
func (s *Service) CleanupOldResources(maxAge time.Duration) int {
	return s.coord.sweep(s.now(), maxAge)
}

// Entry returns the bookkeeping for key without counting as an access.
func (s *Service) Entry(key Key) (EntryInfo, bool) {
	return s.coord.entry(key)
}

// Subscribe returns a channel of completion events and a func that ends the
// subscription. Delivery never blocks workers: events that do not fit in the
// buffer are dropped. buf <= 0 picks a default.
func (s *Service) Subscribe(buf int) (<-chan Event, func()) {
	return s.bus.subscribe(buf)
}

// SubscribeFunc calls fn for each event on a dedicated goroutine.
func (s *Service) SubscribeFunc(fn func(Event)) func() {
	ch, cancel := s.bus.subscribe(0)
	go func() {
		for ev := range ch {
			fn(ev)
		}
	}()
	return cancel
}

// Stats returns a snapshot of the cache and pipeline.
func (s *Service) Stats() Stats {
	st := s.coord.stats()
	return Stats{
		Entries:     st.entries,
		CostBytes:   st.cost,
		BudgetBytes: st.budget,
		InFlight:    st.inflight,
		QueueDepth:  s.pool.QueueDepth(),
		Workers:     s.pool.Size(),
	}
}

// CacheStats implements metrics.StatsProvider.
func (s *Service) CacheStats() metrics.Stats {
	st := s.Stats()
	return metrics.Stats{
		Entries:     st.Entries,
		CostBytes:   st.CostBytes,
		BudgetBytes: st.BudgetBytes,
		InFlight:    st.InFlight,
		QueueDepth:  st.QueueDepth,
	}
}

// Shutdown stops the sweeper, waits for queued tasks to finish and publish,
// then closes subscriber channels. Later calls return the first result.
func (s *Service) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		if s.sweeper != nil {
			s.sweeper.Stop()
		}
		if err := s.pool.Shutdown(ctx); err != nil {
			s.shutdownErr = fmt.Errorf("draining thumbnail pool: %w", err)
		}
		s.bus.close()
		logging.Info("Thumbnail cache shut down")
	})
	return s.shutdownErr
}
