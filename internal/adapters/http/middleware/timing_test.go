package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signups/internal/adapters/http/perf"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// TestTimingMiddleware_EmitsEntry verifies that a request entry is recorded.
func TestTimingMiddleware_EmitsEntry(t *testing.T) {
	collector := perf.NewCollector(100, nil)
	handler := Timing(collector, 0)(okHandler(http.StatusOK))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/activities", nil))

	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

// TestTimingMiddleware_SkipsAssets verifies static assets and uploads are excluded.
func TestTimingMiddleware_SkipsAssets(t *testing.T) {
	collector := perf.NewCollector(100, nil)
	handler := Timing(collector, 0)(okHandler(http.StatusOK))

	for _, path := range []string{"/static/style.css", "/uploads/event-e1.jpg"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
	if collector.TotalRecorded() != 0 {
		t.Errorf("TotalRecorded = %d, want 0", collector.TotalRecorded())
	}
}

// TestTimingMiddleware_NilCollector verifies middleware works without a collector.
func TestTimingMiddleware_NilCollector(t *testing.T) {
	handler := Timing(nil, 0)(okHandler(http.StatusOK))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/session", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// TestTimingMiddleware_HandlerPanic verifies the deferred record still runs
// when the handler panics.
func TestTimingMiddleware_HandlerPanic(t *testing.T) {
	collector := perf.NewCollector(100, nil)
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate, got nil")
		}
		if collector.TotalRecorded() != 1 {
			t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/panic", nil))
}

// TestTimingMiddleware_RoutePattern verifies entries are named by the mux
// pattern even when inner middleware replaces the request.
func TestTimingMiddleware_RoutePattern(t *testing.T) {
	collector := perf.NewCollector(10, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/my-signups/{kind}/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	replaceRequest := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(r.Context()))
		})
	}
	handler := Chain(RecordRoute(mux), replaceRequest, Timing(collector, 0))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("DELETE", "/api/my-signups/event/abc", nil))

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if len(snap.SlowestRoutes) != 1 {
		t.Fatalf("SlowestRoutes = %+v, want one route", snap.SlowestRoutes)
	}
	if got := snap.SlowestRoutes[0].Name; got != "DELETE /api/my-signups/{kind}/{id}" {
		t.Errorf("Name = %q, want the route pattern", got)
	}
}

// TestTimingMiddleware_UnmatchedFallsBackToPath verifies the method and path
// are used when no pattern matched.
func TestTimingMiddleware_UnmatchedFallsBackToPath(t *testing.T) {
	collector := perf.NewCollector(1, nil)
	handler := Timing(collector, 0)(okHandler(http.StatusCreated))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/profile", nil))

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	if len(snap.SlowestRoutes) != 1 || snap.SlowestRoutes[0].Name != "POST /api/profile" {
		t.Errorf("SlowestRoutes = %+v", snap.SlowestRoutes)
	}
}

// TestTimingMiddleware_PoolNoStateLeak verifies that statusWriter pool reuse
// does not leak status codes between requests.
func TestTimingMiddleware_PoolNoStateLeak(t *testing.T) {
	collector := perf.NewCollector(100, nil)

	rr1 := httptest.NewRecorder()
	Timing(collector, 0)(okHandler(http.StatusInternalServerError)).ServeHTTP(rr1, httptest.NewRequest("GET", "/api/fail", nil))
	if rr1.Code != http.StatusInternalServerError {
		t.Errorf("request 1 status = %d, want 500", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})).ServeHTTP(rr2, httptest.NewRequest("GET", "/api/ok", nil))
	if rr2.Code != http.StatusOK {
		t.Errorf("request 2 status = %d, want 200", rr2.Code)
	}

	snap := collector.Snapshot(time.Now().Add(-time.Minute), 10)
	errors := 0
	for _, s := range snap.SlowestRoutes {
		errors += s.Errors
	}
	if errors != 1 {
		t.Errorf("errors = %d, want 1", errors)
	}
}

// BenchmarkTimingMiddleware measures per-request overhead.
func BenchmarkTimingMiddleware(b *testing.B) {
	collector := perf.NewCollector(perf.DefaultRingSize, nil)
	handler := Timing(collector, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest("GET", "/api/bench", nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
