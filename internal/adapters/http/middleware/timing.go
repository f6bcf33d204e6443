package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"signups/internal/adapters/http/perf"
)

// DefaultSlowRequest is the threshold used when Timing is given zero.
const DefaultSlowRequest = 500 * time.Millisecond

// requestIDCounter is an atomic counter for request IDs.
var requestIDCounter uint64

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the underlying ResponseWriter.
// PRE: code is a valid HTTP status code
// POST: status stored, header written to underlying ResponseWriter
func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// statusWriterPool reduces allocations on the hot path.
var statusWriterPool = sync.Pool{
	New: func() any {
		return &statusWriter{}
	},
}

// routeKey holds the matched ServeMux pattern. The middlewares between
// Timing and the mux replace the request, so the pattern is passed back
// through a pointer stored in the context.
type routeKey struct{}

type routeHolder struct {
	pattern string
}

// RecordRoute wraps the mux so Timing can label entries with the matched
// pattern instead of the raw path.
func RecordRoute(mux http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		if h, ok := r.Context().Value(routeKey{}).(*routeHolder); ok {
			h.pattern = r.Pattern
		}
	})
}

// Timing returns middleware that logs request duration.
// Requests to /static/ and /uploads/ are excluded.
// Normal requests log at DEBUG; requests at or above slow log at WARN.
// If collector is non-nil, entries are recorded for the perf snapshot and
// forwarded to its Prometheus metrics.
func Timing(collector *perf.Collector, slow time.Duration) func(http.Handler) http.Handler {
	if slow <= 0 {
		slow = DefaultSlowRequest
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			if strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/uploads/") {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			reqID := atomic.AddUint64(&requestIDCounter, 1)
			holder := &routeHolder{}
			r = r.WithContext(context.WithValue(r.Context(), routeKey{}, holder))

			sw := statusWriterPool.Get().(*statusWriter)
			sw.ResponseWriter = w
			sw.status = http.StatusOK
			defer func() {
				elapsed := time.Since(start)
				name := holder.pattern
				if name == "" {
					name = r.Method + " " + path
				}

				level := slog.LevelDebug
				msg := "request"
				if elapsed >= slow {
					level = slog.LevelWarn
					msg = "slow_request"
				}
				slog.Log(r.Context(), level, msg,
					"request_id", reqID,
					"method", r.Method,
					"path", path,
					"route", name,
					"status", sw.status,
					"duration_ms", float64(elapsed.Microseconds())/1000.0,
				)

				collector.Record(perf.Entry{
					Kind:       perf.KindRequest,
					Name:       name,
					StatusCode: sw.status,
					Duration:   elapsed,
					Timestamp:  start,
				})

				sw.ResponseWriter = nil
				statusWriterPool.Put(sw)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
