package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "modernc.org/sqlite"

	"signups/internal/adapters/auth"
	emailPkg "signups/internal/adapters/email"
	web "signups/internal/adapters/http"
	"signups/internal/adapters/http/perf"
	"signups/internal/adapters/objectstore"
	"signups/internal/adapters/photos"
	"signups/internal/adapters/storage"
	accountStore "signups/internal/adapters/storage/account"
	activityStore "signups/internal/adapters/storage/activity"
	auditStore "signups/internal/adapters/storage/audit"
	profileStore "signups/internal/adapters/storage/profile"
	reportStore "signups/internal/adapters/storage/report"
	signupStore "signups/internal/adapters/storage/signup"
	"signups/internal/application/authstate"
	"signups/internal/application/orchestrators"
	"signups/internal/config"
	"signups/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.IsProduction())
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := perf.NewMetrics(reg)

	// Performance instrumentation: every store goes through the timed DB
	collector := perf.NewCollector(perf.DefaultRingSize, metrics)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQuery)

	accounts := accountStore.NewSQLiteStore(timedDB)
	profiles := profileStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore:  accounts,
		ProfileStore:  profiles,
		ActivityStore: activityStore.NewSQLiteStore(timedDB),
		SignupStore:   signupStore.NewRouter(timedDB),
		ReportStore:   reportStore.NewSQLiteStore(timedDB),
		AuditStore:    auditStore.NewSQLiteStore(timedDB),
	}

	seedDeps := orchestrators.SeedAdminDeps{
		AccountStore: accounts,
		ProfileStore: profiles,
		GenerateID:   uuid.NewString,
		Now:          time.Now,
	}
	if err := orchestrators.ExecuteSeedAdmin(ctx, seedDeps, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	objects, err := objectstore.NewFileStore(cfg.ObjectDir)
	if err != nil {
		return err
	}

	sessions := auth.NewSessionStore(cfg.SessionTTL)
	registry := authstate.NewRegistry(sessions, profiles)
	defer registry.CloseAll()

	svc := &web.Services{
		Sessions: sessions,
		Tokens:   auth.NewJWTManager(cfg.JWTSecret),
		Registry: registry,
		Mailer:   newMailer(cfg),
		Objects:  objects,
		Metrics:  metrics,
		BaseURL:  cfg.BaseURL,
	}
	if cfg.UnsplashKey != "" {
		svc.Photos = photos.NewUnsplashClient(cfg.UnsplashKey, cfg.UnsplashFallbackQuery)
	} else {
		slog.Info("photos_disabled", "reason", "SIGNUPS_UNSPLASH_KEY not set; activities use the default image")
	}

	handler, err := web.NewMux(web.Options{
		StaticDir:          cfg.StaticDir,
		CSRFKey:            cfg.CSRFKey,
		SecureCookies:      cfg.IsProduction(),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		SlowRequest:        cfg.SlowRequest,
		Gatherer:           reg,
	}, stores, svc, collector)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_started", "version", version, "addr", cfg.Addr, "env", cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openDB opens SQLite with WAL mode, foreign keys and a busy timeout, then
// creates the schema.
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := storage.InitDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("database_ready", "path", path)
	return db, nil
}

func newMailer(cfg config.Config) emailPkg.Sender {
	if cfg.ResendKey != "" {
		slog.Info("email_sender", "provider", "resend")
		return emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom, cfg.ReplyTo)
	}
	if cfg.IsProduction() {
		slog.Warn("email_sender", "provider", "noop", "reason", "SIGNUPS_RESEND_KEY is not set; email delivery is disabled")
	} else {
		slog.Info("email_sender", "provider", "noop")
	}
	return emailPkg.NewNoopSender()
}
