package perf

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestCollector_Record_And_Snapshot verifies basic record and snapshot functionality.
func TestCollector_Record_And_Snapshot(t *testing.T) {
	c := NewCollector(100, nil)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Name: "GET /api/activities", StatusCode: 200, Duration: 10 * time.Millisecond, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Name: "GET /api/activities", StatusCode: 500, Duration: 30 * time.Millisecond, Timestamp: now})
	c.Record(Entry{Kind: KindQuery, Name: "select events", Duration: 5 * time.Millisecond, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRecorded != 3 {
		t.Errorf("TotalRecorded = %d, want 3", snap.TotalRecorded)
	}
	if len(snap.SlowestRoutes) != 1 {
		t.Fatalf("SlowestRoutes len = %d, want 1", len(snap.SlowestRoutes))
	}
	if got := snap.SlowestRoutes[0]; got.AvgMs != 20 || got.MaxMs != 30 || got.Errors != 1 {
		t.Errorf("route stat = %+v", got)
	}
	if len(snap.SlowestQueries) != 1 {
		t.Fatalf("SlowestQueries len = %d, want 1", len(snap.SlowestQueries))
	}
}

// TestCollector_RingBuffer_Overwrites verifies oldest entries are overwritten when full.
func TestCollector_RingBuffer_Overwrites(t *testing.T) {
	c := NewCollector(3, nil)
	now := time.Now()

	for i := 0; i < 5; i++ {
		c.Record(Entry{Kind: KindRequest, Name: "GET /x", Duration: time.Duration(i) * time.Millisecond, Timestamp: now})
	}

	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.SlowestRoutes[0].Count != 3 {
		t.Errorf("Count = %d, want 3 (ring buffer kept last 3)", snap.SlowestRoutes[0].Count)
	}
}

// TestCollector_Snapshot_FiltersBySince verifies old entries are excluded.
func TestCollector_Snapshot_FiltersBySince(t *testing.T) {
	c := NewCollector(10, nil)
	now := time.Now()
	c.Record(Entry{Kind: KindRequest, Name: "old", Duration: time.Millisecond, Timestamp: now.Add(-time.Hour)})
	c.Record(Entry{Kind: KindRequest, Name: "new", Duration: time.Millisecond, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if len(snap.SlowestRoutes) != 1 || snap.SlowestRoutes[0].Name != "new" {
		t.Errorf("SlowestRoutes = %+v, want only new", snap.SlowestRoutes)
	}
}

// TestCollector_Percentiles verifies P50/P95 calculation.
func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200, nil)
	now := time.Now()
	for i := 1; i <= 101; i++ {
		c.Record(Entry{Kind: KindRequest, Name: "GET /p", Duration: time.Duration(i) * time.Millisecond, Timestamp: now})
	}
	snap := c.Snapshot(now.Add(-time.Minute), 1)
	if snap.RequestP50Ms != 51 {
		t.Errorf("P50 = %v, want 51", snap.RequestP50Ms)
	}
	if snap.RequestP95Ms != 96 {
		t.Errorf("P95 = %v, want 96", snap.RequestP95Ms)
	}
}

// TestCollector_ForwardsToMetrics verifies entries reach Prometheus.
func TestCollector_ForwardsToMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	c := NewCollector(10, m)

	c.Record(Entry{Kind: KindRequest, Name: "GET /api/activities", StatusCode: 200, Duration: time.Millisecond, Timestamp: time.Now()})
	c.Record(Entry{Kind: KindRequest, Name: "GET /api/activities", StatusCode: 200, Duration: time.Millisecond, Timestamp: time.Now()})
	m.SignupCreated("event", "WaitingList")

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET /api/activities", "200")); got != 2 {
		t.Errorf("requests counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.signups.WithLabelValues("event", "WaitingList")); got != 1 {
		t.Errorf("signups counter = %v, want 1", got)
	}
}

// TestMetrics_NilSafe verifies a nil Metrics is a no-op.
func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.SignupCreated("event", "Confirmed")
	m.Decision("approve")
	var c *Collector
	c.Record(Entry{Kind: KindQuery})
}

// TestCollector_ConcurrentWrites verifies no races under concurrent Record calls.
func TestCollector_ConcurrentWrites(t *testing.T) {
	c := NewCollector(64, NewMetrics(prometheus.NewRegistry()))
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Record(Entry{Kind: KindQuery, Name: "select users", Duration: time.Microsecond, Timestamp: time.Now()})
			}
		}()
	}
	wg.Wait()
	if c.TotalRecorded() != 800 {
		t.Errorf("TotalRecorded = %d, want 800", c.TotalRecorded())
	}
}

func BenchmarkCollectorRecord(b *testing.B) {
	c := NewCollector(DefaultRingSize, nil)
	e := Entry{Kind: KindRequest, Name: "GET /api/activities", StatusCode: 200, Duration: time.Millisecond, Timestamp: time.Now()}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Record(e)
	}
}
