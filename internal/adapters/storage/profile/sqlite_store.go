package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"signups/internal/adapters/storage"
	domain "signups/internal/domain/profile"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new profile store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves the profile for an account.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	var p domain.Profile
	var studentNumber sql.NullString
	var isAdmin int
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, role, student_number, is_admin, car_spaces FROM users WHERE id = ?", id).
		Scan(&p.ID, &p.Name, &p.Email, &p.Role, &studentNumber, &isAdmin, &p.CarSpaces)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Profile{}, err
	}
	if studentNumber.Valid {
		p.StudentNumber = &studentNumber.String
	}
	p.IsAdmin = isAdmin != 0
	return p, nil
}

// Save upserts the user-editable profile fields.
// INVARIANT: is_admin is never written here; see SetAdmin
func (s *SQLiteStore) Save(ctx context.Context, p domain.Profile) error {
	var studentNumber interface{}
	if p.StudentNumber != nil {
		studentNumber = *p.StudentNumber
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, student_number, car_spaces)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			email=excluded.email,
			role=excluded.role,
			student_number=excluded.student_number,
			car_spaces=excluded.car_spaces`,
		p.ID, p.Name, p.Email, p.Role, studentNumber, p.CarSpaces)
	return err
}

// SetAdmin grants or revokes the admin flag.
// PRE: the profile row exists
func (s *SQLiteStore) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET is_admin = ? WHERE id = ?", storage.BoolInt(isAdmin), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
