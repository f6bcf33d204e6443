package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"signups/internal/adapters/storage"
	domain "signups/internal/domain/activity"
)

// SQLiteStore implements Store using the events and sessions tables.
type SQLiteStore struct {
	db storage.SQLDB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new activity store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const (
	eventColumns   = "id, name, event_date, location, description, image_url, photographer_name, photographer_url, requires_approval, created_at"
	sessionColumns = "id, name, weekday, location, description, image_url, photographer_name, photographer_url, early_week_signups_only, created_at"
)

// GetByID finds an activity in either table.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Activity, error) {
	a, err := scanEvent(s.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id).Scan)
	if err == nil || !errors.Is(err, sql.ErrNoRows) {
		return a, err
	}
	a, err = scanSession(s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Activity{}, fmt.Errorf("activity %s: %w", id, domain.ErrNotFound)
	}
	return a, err
}

// List returns events then sessions in insertion order. Date filtering and
// sorting belong to the caller since session dates depend on "now".
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Activity, error) {
	var out []domain.Activity
	if filter.Kind == "" || filter.Kind == domain.KindEvent {
		events, err := s.query(ctx, "SELECT "+eventColumns+" FROM events ORDER BY event_date, created_at", scanEvent)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		out = append(out, events...)
	}
	if filter.Kind == "" || filter.Kind == domain.KindSession {
		sessions, err := s.query(ctx, "SELECT "+sessionColumns+" FROM sessions ORDER BY created_at", scanSession)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		out = append(out, sessions...)
	}
	return out, nil
}

// Save upserts an activity into the table for its kind.
// PRE: value has been validated
func (s *SQLiteStore) Save(ctx context.Context, a domain.Activity) error {
	switch a.Kind {
	case domain.KindEvent:
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name=excluded.name, event_date=excluded.event_date, location=excluded.location,
				description=excluded.description, image_url=excluded.image_url,
				photographer_name=excluded.photographer_name, photographer_url=excluded.photographer_url,
				requires_approval=excluded.requires_approval`,
			a.ID, a.Name, a.Date.Format(storage.DateFormat), a.Location, a.Description,
			a.Image.URL, a.Image.PhotographerName, a.Image.PhotographerURL,
			storage.BoolInt(a.RequiresApproval), storage.FormatTime(a.CreatedAt))
		return err
	case domain.KindSession:
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name=excluded.name, weekday=excluded.weekday, location=excluded.location,
				description=excluded.description, image_url=excluded.image_url,
				photographer_name=excluded.photographer_name, photographer_url=excluded.photographer_url,
				early_week_signups_only=excluded.early_week_signups_only`,
			a.ID, a.Name, int(a.Weekday), a.Location, a.Description,
			a.Image.URL, a.Image.PhotographerName, a.Image.PhotographerURL,
			storage.BoolInt(a.EarlyWeekSignupsOnly), storage.FormatTime(a.CreatedAt))
		return err
	}
	return domain.ErrInvalidKind
}

// UpdateImage replaces only the image reference of an activity.
func (s *SQLiteStore) UpdateImage(ctx context.Context, kind domain.Kind, id string, image domain.Image) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE "+table+" SET image_url = ?, photographer_name = ?, photographer_url = ? WHERE id = ?",
		image.URL, image.PhotographerName, image.PhotographerURL, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("activity %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func tableFor(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindEvent:
		return "events", nil
	case domain.KindSession:
		return "sessions", nil
	}
	return "", domain.ErrInvalidKind
}

func (s *SQLiteStore) query(ctx context.Context, q string, scan func(func(...interface{}) error) (domain.Activity, error)) ([]domain.Activity, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Activity
	for rows.Next() {
		a, err := scan(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanEvent(scan func(dest ...interface{}) error) (domain.Activity, error) {
	a := domain.Activity{Kind: domain.KindEvent}
	var date, createdAt string
	var requiresApproval int
	err := scan(&a.ID, &a.Name, &date, &a.Location, &a.Description,
		&a.Image.URL, &a.Image.PhotographerName, &a.Image.PhotographerURL,
		&requiresApproval, &createdAt)
	if err != nil {
		return domain.Activity{}, err
	}
	a.Date = storage.ParseTime(date)
	a.RequiresApproval = requiresApproval != 0
	a.CreatedAt = storage.ParseTime(createdAt)
	return a, nil
}

func scanSession(scan func(dest ...interface{}) error) (domain.Activity, error) {
	a := domain.Activity{Kind: domain.KindSession}
	var weekday, earlyWeek int
	var createdAt string
	err := scan(&a.ID, &a.Name, &weekday, &a.Location, &a.Description,
		&a.Image.URL, &a.Image.PhotographerName, &a.Image.PhotographerURL,
		&earlyWeek, &createdAt)
	if err != nil {
		return domain.Activity{}, err
	}
	a.Weekday = time.Weekday(weekday)
	a.EarlyWeekSignupsOnly = earlyWeek != 0
	a.CreatedAt = storage.ParseTime(createdAt)
	return a, nil
}
