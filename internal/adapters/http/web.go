package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signups/internal/adapters/auth"
	"signups/internal/adapters/email"
	"signups/internal/adapters/http/middleware"
	"signups/internal/adapters/http/perf"
	accountStore "signups/internal/adapters/storage/account"
	activityStore "signups/internal/adapters/storage/activity"
	auditStore "signups/internal/adapters/storage/audit"
	profileStore "signups/internal/adapters/storage/profile"
	reportStore "signups/internal/adapters/storage/report"
	signupStore "signups/internal/adapters/storage/signup"
	"signups/internal/application/authstate"
	"signups/internal/application/directory"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore  accountStore.Store
	ProfileStore  profileStore.Store
	ActivityStore activityStore.Store
	SignupStore   signupStore.Store
	ReportStore   reportStore.Store
	AuditStore    auditStore.Store
}

// ObjectStore keeps uploaded activity images.
type ObjectStore interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
	Open(name string) (io.ReadCloser, error)
}

// Services holds the non-storage collaborators. Photos may be nil.
type Services struct {
	Sessions *auth.SessionStore
	Tokens   *auth.JWTManager
	Registry *authstate.Registry
	Mailer   email.Sender
	Photos   directory.PhotoSearcher
	Objects  ObjectStore
	Metrics  *perf.Metrics
	BaseURL  string
}

// Options configures the HTTP surface.
type Options struct {
	StaticDir          string
	CSRFKey            string // hex, 32 bytes; random when empty
	SecureCookies      bool
	RateLimitPerSecond float64
	SlowRequest        time.Duration
	Gatherer           prometheus.Gatherer // serves /metrics when set
}

// ErrInvalidCSRFKey is returned by NewMux for a malformed key.
var ErrInvalidCSRFKey = errors.New("CSRF key must be 64 hex characters (32 bytes)")

// decodeCSRFKey reads a hex-encoded 32-byte key. An empty key yields a
// random one, which does not survive a restart.
func decodeCSRFKey(keyHex string) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, ErrInvalidCSRFKey
		}
		return key, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	slog.Warn("csrf_key_generated", "reason", "SIGNUPS_CSRF_KEY not set; form tokens won't survive restart")
	return key, nil
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global services instance (set by NewMux)
var services *Services

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global HTTP options (set by NewMux)
var options Options

// NewMux wires HTTP handlers for the app.
func NewMux(opts Options, s *Stores, svc *Services, collector *perf.Collector) (http.Handler, error) {
	csrfKey, err := decodeCSRFKey(opts.CSRFKey)
	if err != nil {
		return nil, err
	}
	if opts.RateLimitPerSecond <= 0 {
		opts.RateLimitPerSecond = 10
	}

	stores = s
	services = svc
	perfCollector = collector
	options = opts

	mux := http.NewServeMux()
	registerRoutes(mux)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	limiter := middleware.NewRateLimiter(opts.RateLimitPerSecond)

	var inFlight prometheus.Gauge
	if m := collector.Metrics(); m != nil {
		inFlight = m.InFlight
	}

	// Apply middleware: Timing -> InFlight -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(middleware.RecordRoute(mux),
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, opts.SecureCookies),
		middleware.Authenticate(svc.Tokens, svc.Registry),
		middleware.RateLimit(limiter),
		middleware.InFlight(inFlight),
		middleware.Timing(collector, opts.SlowRequest),
	), nil
}
