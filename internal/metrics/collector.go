package metrics

import (
	"time"

	"thumbcache/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	CacheStats() Stats
}

// Stats holds a snapshot of the cache state
type Stats struct {
	Entries     int
	CostBytes   int64
	BudgetBytes int64
	InFlight    int
	QueueDepth  int
}

// Collector periodically copies cache stats into the store gauges
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.CacheStats()

	StoreEntries.Set(float64(stats.Entries))
	StoreBytes.Set(float64(stats.CostBytes))
	StoreBudget.Set(float64(stats.BudgetBytes))
	InFlight.Set(float64(stats.InFlight))
	PoolQueueDepth.Set(float64(stats.QueueDepth))

	logging.Debug("Metrics collected: entries=%d, bytes=%d/%d, inflight=%d, queued=%d",
		stats.Entries, stats.CostBytes, stats.BudgetBytes, stats.InFlight, stats.QueueDepth)
}
