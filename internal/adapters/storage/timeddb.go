package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"signups/internal/adapters/http/perf"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var _ SQLDB = (*sql.DB)(nil)

// DefaultSlowQuery is the threshold used when none is configured.
const DefaultSlowQuery = 50 * time.Millisecond

// TimedDB wraps a *sql.DB to log slow queries and record every query to a
// perf collector under a short operation name such as "select signups".
type TimedDB struct {
	db        *sql.DB
	collector *perf.Collector
	threshold time.Duration
}

var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db with timing instrumentation.
// PRE: db is a valid database connection; collector may be nil
// POST: threshold <= 0 selects DefaultSlowQuery
func NewTimedDB(db *sql.DB, collector *perf.Collector, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, collector: collector, threshold: threshold}
}

// RawDB returns the underlying *sql.DB (needed for migrations and pool config).
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

func (t *TimedDB) observe(query string, start time.Time, err error) {
	d := time.Since(start)
	op := OpName(query)
	if d >= t.threshold {
		slog.Warn("slow_query", "op", op, "duration_ms", d.Milliseconds(), "error", err)
	}
	t.collector.Record(perf.Entry{
		Kind:      perf.KindQuery,
		Name:      op,
		Duration:  d,
		Timestamp: start,
	})
}

// ExecContext wraps sql.DB.ExecContext with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.observe(query, start, err)
	return result, err
}

// QueryContext wraps sql.DB.QueryContext with timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.observe(query, start, err)
	return rows, err
}

// QueryRowContext wraps sql.DB.QueryRowContext with timing.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.observe(query, start, row.Err())
	return row
}

// BeginTx wraps sql.DB.BeginTx with timing.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.observe("BEGIN", start, err)
	return tx, err
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

// PingContext verifies the database connection.
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// OpName reduces a SQL statement to "verb table", e.g. "select signups".
// Label cardinality stays bounded by the schema.
func OpName(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return "unknown"
	}
	verb := fields[0]
	var marker string
	switch verb {
	case "select", "delete":
		marker = "from"
	case "insert":
		marker = "into"
	case "update":
		if len(fields) > 1 {
			return verb + " " + trimIdent(fields[1])
		}
		return verb
	default:
		return verb
	}
	for i, f := range fields {
		if f == marker && i+1 < len(fields) {
			return verb + " " + trimIdent(fields[i+1])
		}
	}
	return verb
}

func trimIdent(s string) string {
	return strings.Trim(s, "(),;`\"")
}
