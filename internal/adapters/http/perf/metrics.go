package perf

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the service. All methods are
// safe on a nil receiver so tests can run without a registry.
type Metrics struct {
	InFlight        prometheus.Gauge
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queryDuration   *prometheus.HistogramVec
	signups         *prometheus.CounterVec
	decisions       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// PRE: reg is non-nil; a fresh prometheus.NewRegistry() in tests
// POST: collectors registered; panics on duplicate registration
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signups_http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signups_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signups_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signups_db_query_duration_seconds",
			Help:    "SQLite query latencies in seconds.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		}, []string{"op"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signups_created_total",
			Help: "Signups created, by activity kind and initial status.",
		}, []string{"kind", "status"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signups_decisions_total",
			Help: "Admin approve/deny decisions.",
		}, []string{"decision"}),
	}
	reg.MustRegister(m.InFlight, m.requests, m.requestDuration, m.queryDuration, m.signups, m.decisions)
	return m
}

// SignupCreated counts a new signup.
func (m *Metrics) SignupCreated(kind, status string) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(kind, status).Inc()
}

// Decision counts an admin decision.
func (m *Metrics) Decision(decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) observeRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) observeQuery(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(op).Observe(d.Seconds())
}
