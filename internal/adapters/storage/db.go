package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// TimeFormat is the layout used for every TEXT timestamp column.
const TimeFormat = "2006-01-02T15:04:05.999999999Z07:00"

// DateFormat is the layout used for calendar-date columns.
const DateFormat = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS account (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	failed_logins INTEGER NOT NULL DEFAULT 0,
	locked_until TEXT
);

CREATE TABLE IF NOT EXISTS auth_token (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	purpose TEXT NOT NULL,
	token TEXT NOT NULL UNIQUE,
	expires_at TEXT NOT NULL,
	used INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	FOREIGN KEY (account_id) REFERENCES account(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	role TEXT NOT NULL,
	student_number TEXT,
	is_admin INTEGER NOT NULL DEFAULT 0,
	car_spaces INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (id) REFERENCES account(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	event_date TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	photographer_name TEXT NOT NULL DEFAULT '',
	photographer_url TEXT NOT NULL DEFAULT '',
	requires_approval INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	weekday INTEGER NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	photographer_name TEXT NOT NULL DEFAULT '',
	photographer_url TEXT NOT NULL DEFAULT '',
	early_week_signups_only INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS signups (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	event_id TEXT NOT NULL,
	can_drive INTEGER NOT NULL DEFAULT 0,
	transport_needed INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_signups_user ON signups(user_id);
CREATE INDEX IF NOT EXISTS idx_signups_event ON signups(event_id);

CREATE TABLE IF NOT EXISTS session_signups (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	can_drive INTEGER NOT NULL DEFAULT 0,
	transport_needed INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	week_start TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (session_id, user_id, week_start),
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_session_signups_user ON session_signups(user_id);

CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	category TEXT NOT NULL,
	action TEXT NOT NULL,
	actor_id TEXT NOT NULL,
	actor_email TEXT NOT NULL DEFAULT '',
	resource_type TEXT NOT NULL DEFAULT '',
	resource_id TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);
`

// InitDB initializes the database schema and rewrites legacy data.
// PRE: db is a valid database connection
// POST: All tables exist; stored waitlist statuses use the canonical literal
func InitDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return normalizeWaitlistStatus(ctx, db)
}

// normalizeWaitlistStatus rewrites "Pending" and "Waiting List" rows to
// "WaitingList" so every writer and reader agrees on one literal.
func normalizeWaitlistStatus(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"signups", "session_signups"} {
		res, err := db.ExecContext(ctx,
			"UPDATE "+table+" SET status = 'WaitingList' WHERE status IN ('Pending', 'Waiting List')")
		if err != nil {
			return fmt.Errorf("normalize %s status: %w", table, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			slog.Info("migration", "op", "normalize_waitlist_status", "table", table, "rows", n)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ParseTime reads a TEXT timestamp written with TimeFormat or by SQLite's
// datetime(). Unparseable values yield the zero time.
func ParseTime(s string) time.Time {
	for _, f := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", DateFormat} {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatTime renders t for a TEXT timestamp column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// BoolInt converts a bool for an INTEGER flag column.
func BoolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
