package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 4096

// EntryKind distinguishes request vs query entries.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is a single timing record.
type Entry struct {
	Kind       EntryKind
	Name       string // route pattern or "select signups"
	StatusCode int    // 0 for queries
	Duration   time.Duration
	Timestamp  time.Time
}

// Collector keeps the most recent timings in a ring buffer and forwards
// every entry to the Prometheus metrics when they are attached.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	count   atomic.Int64
	metrics *Metrics
}

// NewCollector creates a collector holding up to size entries.
// PRE: m may be nil
// POST: Returns a ready-to-use collector with pre-allocated storage
func NewCollector(size int, m *Metrics) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{entries: make([]Entry, size), metrics: m}
}

// Metrics returns the attached Prometheus metrics, or nil.
func (c *Collector) Metrics() *Metrics {
	if c == nil {
		return nil
	}
	return c.metrics
}

// Record stores e, overwriting the oldest entry when full.
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % len(c.entries)
	c.mu.Unlock()
	c.count.Add(1)

	switch e.Kind {
	case KindRequest:
		c.metrics.observeRequest(e.Name, e.StatusCode, e.Duration)
	case KindQuery:
		c.metrics.observeQuery(e.Name, e.Duration)
	}
}

// TotalRecorded returns the number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return c.count.Load()
}

// Stat aggregates timings for one name.
type Stat struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	AvgMs  float64 `json:"avg_ms"`
	MaxMs  float64 `json:"max_ms"`
	Errors int     `json:"errors"`
}

// Snapshot is the read-side view served to admins.
type Snapshot struct {
	TotalRecorded  int64   `json:"total_recorded"`
	RequestP50Ms   float64 `json:"request_p50_ms"`
	RequestP95Ms   float64 `json:"request_p95_ms"`
	SlowestRoutes  []Stat  `json:"slowest_routes"`
	SlowestQueries []Stat  `json:"slowest_queries"`
}

// Snapshot aggregates entries newer than since, keeping the topN slowest
// routes and queries by average duration.
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, len(c.entries))
	copy(buf, c.entries)
	c.mu.Unlock()

	routes := map[string]*Stat{}
	queries := map[string]*Stat{}
	var durations []float64
	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		ms := float64(e.Duration.Microseconds()) / 1000
		into := queries
		if e.Kind == KindRequest {
			into = routes
			durations = append(durations, ms)
		}
		s := into[e.Name]
		if s == nil {
			s = &Stat{Name: e.Name}
			into[e.Name] = s
		}
		s.AvgMs = (s.AvgMs*float64(s.Count) + ms) / float64(s.Count+1)
		s.Count++
		s.MaxMs = math.Max(s.MaxMs, ms)
		if e.StatusCode >= 500 {
			s.Errors++
		}
	}

	snap := Snapshot{
		TotalRecorded:  c.TotalRecorded(),
		SlowestRoutes:  slowest(routes, topN),
		SlowestQueries: slowest(queries, topN),
	}
	if len(durations) > 0 {
		sort.Float64s(durations)
		snap.RequestP50Ms = percentile(durations, 50)
		snap.RequestP95Ms = percentile(durations, 95)
	}
	return snap
}

// percentile interpolates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	idx := p / 100 * float64(len(sorted)-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func slowest(stats map[string]*Stat, n int) []Stat {
	list := make([]Stat, 0, len(stats))
	for _, s := range stats {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AvgMs > list[j].AvgMs })
	if len(list) > n {
		list = list[:n]
	}
	return list
}
