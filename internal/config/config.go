// Package config reads the service configuration from SIGNUPS_* environment
// variables. A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const prefix = "SIGNUPS_"

// Config holds every runtime setting of the service.
type Config struct {
	Addr      string
	Env       string
	DBPath    string
	StaticDir string
	ObjectDir string
	BaseURL   string
	LogLevel  string

	CSRFKey    string
	JWTSecret  string
	SessionTTL time.Duration

	AdminEmail    string
	AdminPassword string

	ResendKey string
	EmailFrom string
	ReplyTo   string

	UnsplashKey           string
	UnsplashFallbackQuery string

	RateLimitPerSecond float64
	SlowQuery          time.Duration
	SlowRequest        time.Duration
}

// Load reads the configuration, applying defaults for unset keys.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return Config{
		Addr:      getenv("ADDR", ":8080"),
		Env:       getenv("ENV", "development"),
		DBPath:    getenv("DB_PATH", "signups.db"),
		StaticDir: getenv("STATIC_DIR", "static"),
		ObjectDir: getenv("OBJECT_DIR", "uploads"),
		BaseURL:   strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:  getenv("LOG_LEVEL", "info"),

		CSRFKey:    getenv("CSRF_KEY", ""),
		JWTSecret:  getenv("JWT_SECRET", "dev-secret"),
		SessionTTL: getenvDuration("SESSION_TTL", 7*24*time.Hour),

		AdminEmail:    getenv("ADMIN_EMAIL", "admin@club.org.nz"),
		AdminPassword: getenv("ADMIN_PASSWORD", ""),

		ResendKey: getenv("RESEND_KEY", ""),
		EmailFrom: getenv("EMAIL_FROM", "Club Signups <noreply@club.org.nz>"),
		ReplyTo:   getenv("REPLY_TO", "admin@club.org.nz"),

		UnsplashKey:           getenv("UNSPLASH_KEY", ""),
		UnsplashFallbackQuery: getenv("UNSPLASH_FALLBACK_QUERY", "sailing event"),

		RateLimitPerSecond: getenvFloat("RATE_LIMIT_PER_SECOND", 10),
		SlowQuery:          getenvMillis("SLOW_QUERY_MS", 50*time.Millisecond),
		SlowRequest:        getenvMillis("SLOW_REQUEST_MS", 500*time.Millisecond),
	}, nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings that are unsafe outside development.
func (c Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if c.JWTSecret == "dev-secret" || len(c.JWTSecret) < 32 {
		return fmt.Errorf("config: %sJWT_SECRET must be set to at least 32 bytes in production", prefix)
	}
	if key, err := hex.DecodeString(c.CSRFKey); err != nil || len(key) != 32 {
		return fmt.Errorf("config: %sCSRF_KEY must be 64 hex characters in production", prefix)
	}
	return nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("config: load %s: %w", path, err)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(prefix + key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(prefix + key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvMillis(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(prefix + key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(prefix + key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
