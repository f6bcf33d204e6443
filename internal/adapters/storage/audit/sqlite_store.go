package audit

import (
	"context"

	"signups/internal/adapters/storage"
	domain "signups/internal/domain/audit"
)

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an audit event.
func (s *SQLiteStore) Save(ctx context.Context, event domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, timestamp, category, action, actor_id, actor_email, resource_type, resource_id, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, storage.FormatTime(event.Timestamp), string(event.Category), string(event.Action),
		event.ActorID, event.ActorEmail, event.ResourceType, event.ResourceID, event.Description)
	return err
}

// List returns audit events with optional filtering, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error) {
	query := `SELECT id, timestamp, category, action, actor_id, actor_email, resource_type, resource_id, description FROM audit_log WHERE 1=1`
	var args []interface{}

	if filter.Category != nil {
		query += " AND category = ?"
		args = append(args, string(*filter.Category))
	}
	if filter.ActorID != nil {
		query += " AND actor_id = ?"
		args = append(args, *filter.ActorID)
	}
	if filter.ResourceID != nil {
		query += " AND resource_id = ?"
		args = append(args, *filter.ResourceID)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var ts, category, action string
		if err := rows.Scan(&e.ID, &ts, &category, &action, &e.ActorID, &e.ActorEmail, &e.ResourceType, &e.ResourceID, &e.Description); err != nil {
			return nil, err
		}
		e.Timestamp = storage.ParseTime(ts)
		e.Category = domain.Category(category)
		e.Action = domain.Action(action)
		events = append(events, e)
	}
	return events, rows.Err()
}
