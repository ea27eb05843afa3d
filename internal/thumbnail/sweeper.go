package thumbnail

import (
	"sync"
	"time"

	"thumbcache/internal/logging"
	"thumbcache/internal/metrics"
)

// DefaultSweepInterval is how often stale entries are evicted.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper periodically evicts entries not accessed within maxAge.
type Sweeper struct {
	sweep    func(maxAge time.Duration) int
	interval time.Duration
	maxAge   time.Duration

	stopChan  chan struct{}
	doneChan  chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSweeper creates a sweeper; call Start to begin ticking.
func NewSweeper(sweep func(maxAge time.Duration) int, interval, maxAge time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		sweep:    sweep,
		interval: interval,
		maxAge:   maxAge,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the sweep loop in a goroutine.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		go s.loop()
		logging.Info("Cache sweeper started (interval: %v, max age: %v)", s.interval, s.maxAge)
	})
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		// A sweeper that never started has no loop to wait for.
		s.startOnce.Do(func() { close(s.doneChan) })
		close(s.stopChan)
		<-s.doneChan
	})
}

func (s *Sweeper) loop() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Sweeper) runOnce() int {
	evicted := s.sweep(s.maxAge)
	metrics.SweepsTotal.Inc()
	if evicted > 0 {
		logging.Debug("Sweep evicted %d entries older than %v", evicted, s.maxAge)
	}
	return evicted
}
