package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// gaugeValue reads an unlabelled gauge back from the default registry.
func gaugeValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		metrics := mf.GetMetric()
		if len(metrics) == 0 {
			t.Fatalf("%s has no samples", name)
		}
		return metrics[0].GetGauge().GetValue()
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

// seriesCount returns how many label combinations a family exports.
func seriesCount(t *testing.T, name string) int {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return len(mf.GetMetric())
		}
	}
	return 0
}

func TestHTTPMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestPipelineMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"RequestsTotal", RequestsTotal},
		{"InFlight", InFlight},
		{"Cancellations", Cancellations},
		{"GenerationsTotal", GenerationsTotal},
		{"GenerationDuration", GenerationDuration},
		{"PoolQueueDepth", PoolQueueDepth},
		{"PoolWorkers", PoolWorkers},
		{"ImageDecodeByFormat", ImageDecodeByFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestStoreAndEventMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"StoreBytes", StoreBytes},
		{"StoreEntries", StoreEntries},
		{"StoreBudget", StoreBudget},
		{"Evictions", Evictions},
		{"SweepsTotal", SweepsTotal},
		{"EventsPublished", EventsPublished},
		{"EventsDropped", EventsDropped},
		{"Subscribers", Subscribers},
		{"MemoryUsageRatio", MemoryUsageRatio},
		{"MemoryPaused", MemoryPaused},
		{"MemoryGCPauses", MemoryGCPauses},
		{"AppInfo", AppInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetricsPrepopulatesLabels(t *testing.T) {
	InitializeMetrics()

	tests := []struct {
		family string
		min    int
	}{
		{"thumbcache_requests_total", len(Variants) * 5},
		{"thumbcache_generations_total", len(Variants) * 3},
		{"thumbcache_evictions_total", 4},
		{"thumbcache_events_published_total", 2},
	}

	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			if got := seriesCount(t, tt.family); got < tt.min {
				t.Errorf("%s exports %d series, want at least %d", tt.family, got, tt.min)
			}
		})
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc123", "go1.25")
	if got := seriesCount(t, "thumbcache_app_info"); got < 1 {
		t.Errorf("thumbcache_app_info exports %d series", got)
	}
}
