package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"thumbcache/internal/filesystem"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) CacheStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{}
	c := NewCollector(provider, time.Minute)

	if c.statsProvider != provider {
		t.Error("statsProvider not set")
	}
	if c.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", c.interval)
	}
	if c.stopChan == nil || c.doneChan == nil {
		t.Error("channels not initialized")
	}
}

func TestCollectWithNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Minute)
	// Must not panic
	c.collect()
}

func TestCollectUpdatesStoreGauges(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{
		Entries:     7,
		CostBytes:   4096,
		BudgetBytes: 1 << 20,
		InFlight:    3,
		QueueDepth:  2,
	}}
	c := NewCollector(provider, time.Minute)
	c.collect()

	tests := []struct {
		name string
		want float64
	}{
		{"thumbcache_store_entries", 7},
		{"thumbcache_store_bytes", 4096},
		{"thumbcache_store_budget_bytes", 1 << 20},
		{"thumbcache_inflight", 3},
		{"thumbcache_pool_queue_depth", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gaugeValue(t, tt.name); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCollectorImmediateCollection(t *testing.T) {
	provider := &mockStatsProvider{}
	c := NewCollector(provider, time.Hour)
	c.Start()
	c.Stop()

	if provider.callCount() != 1 {
		t.Errorf("CacheStats called %d times, want 1", provider.callCount())
	}
}

func TestCollectorMultipleCollectCycles(t *testing.T) {
	provider := &mockStatsProvider{}
	c := NewCollector(provider, 5*time.Millisecond)
	c.Start()

	deadline := time.Now().Add(2 * time.Second)
	for provider.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()

	if provider.callCount() < 3 {
		t.Errorf("CacheStats called %d times, want at least 3", provider.callCount())
	}
}

func TestCollectorStopCompletesCleanly(t *testing.T) {
	c := NewCollector(&mockStatsProvider{}, time.Millisecond)
	c.Start()

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
}

func TestStatsProviderInterface(_ *testing.T) {
	var _ StatsProvider = (*mockStatsProvider)(nil)
}

func TestNewFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()
	if obs == nil {
		t.Fatal("NewFilesystemObserver() returned nil")
	}
	var _ filesystem.Observer = obs
}

func TestFilesystemObserverRecords(_ *testing.T) {
	obs := NewFilesystemObserver()
	obs.ObserveOperation("stat", 0.01, nil)
	obs.ObserveOperation("open", 0.02, errors.New("stale file handle"))
	obs.ObserveRetryAttempt("stat")
	obs.ObserveRetrySuccess("stat")
	obs.ObserveRetryFailure("open")
	obs.ObserveStaleError("open")
}
