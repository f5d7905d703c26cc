package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledRecordsNothing(t *testing.T) {
	m := New(Config{Enabled: false})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricRefreshLatency, time.Millisecond)

	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLogout)
	m.Observe(MetricRefreshLatency, time.Second)
	if m.Enabled() || m.LatencyEnabled() || m.Value(MetricLogout) != 0 {
		t.Fatal("nil metrics must be inert")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := New(Config{Enabled: true})
	const workers, per = 8, 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < per; j++ {
				m.Inc(MetricRequestRetried)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRequestRetried); got != workers*per {
		t.Fatalf("expected %d, got %d", workers*per, got)
	}
	if got := m.Snapshot().Counters[MetricRequestRetried]; got != workers*per {
		t.Fatalf("snapshot mismatch: %d", got)
	}
}

func TestMetricsLatencyBuckets(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricRefreshLatency, 3*time.Millisecond)
	m.Observe(MetricRefreshLatency, 40*time.Millisecond)
	m.Observe(MetricRefreshLatency, 2*time.Second)
	m.Observe(MetricLoginSuccess, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricRefreshLatency]
	if len(buckets) != HistBucketCount {
		t.Fatalf("expected %d buckets, got %d", HistBucketCount, len(buckets))
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected bucket layout %v", buckets)
	}
}

func TestMetricsLatencyRequiresFlag(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Observe(MetricRefreshLatency, time.Millisecond)
	if _, ok := m.Snapshot().Histograms[MetricRefreshLatency]; ok {
		t.Fatal("histogram must be absent when latency is disabled")
	}
}
