package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"signups/internal/adapters/storage"
	domain "signups/internal/domain/account"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const accountColumns = "id, email, password_hash, status, created_at, failed_logins, locked_until"

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE id = ?", id)
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return entity, err
}

// GetByEmail retrieves an Account by email, ignoring case.
// PRE: email is non-empty
// POST: Returns the entity or an error wrapping domain.ErrNotFound
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE email = ?", normalizeEmail(email))
	entity, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %s: %w", email, domain.ErrNotFound)
	}
	return entity, err
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	var lockedUntil interface{}
	if !entity.LockedUntil.IsZero() {
		lockedUntil = storage.FormatTime(entity.LockedUntil)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email=excluded.email,
			password_hash=excluded.password_hash,
			status=excluded.status,
			failed_logins=excluded.failed_logins,
			locked_until=excluded.locked_until`,
		entity.ID,
		normalizeEmail(entity.Email),
		entity.PasswordHash,
		entity.Status,
		storage.FormatTime(entity.CreatedAt),
		entity.FailedLogins,
		lockedUntil,
	)
	return err
}

// Count returns the total number of accounts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&count)
	return count, err
}

// SaveToken persists an email token.
// PRE: token.Token is unique
func (s *SQLiteStore) SaveToken(ctx context.Context, t domain.Token) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_token (id, account_id, purpose, token, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET used=excluded.used`,
		t.ID, t.AccountID, t.Purpose, t.Token,
		storage.FormatTime(t.ExpiresAt), storage.BoolInt(t.Used), storage.FormatTime(t.CreatedAt),
	)
	return err
}

// GetToken looks up a token by its secret value.
// POST: Returns domain.ErrTokenInvalid when no such token exists
func (s *SQLiteStore) GetToken(ctx context.Context, token string) (domain.Token, error) {
	var t domain.Token
	var expiresAt, createdAt string
	var used int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, purpose, token, expires_at, used, created_at
		FROM auth_token WHERE token = ?`, token).
		Scan(&t.ID, &t.AccountID, &t.Purpose, &t.Token, &expiresAt, &used, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Token{}, domain.ErrTokenInvalid
	}
	if err != nil {
		return domain.Token{}, err
	}
	t.ExpiresAt = storage.ParseTime(expiresAt)
	t.CreatedAt = storage.ParseTime(createdAt)
	t.Used = used != 0
	return t, nil
}

// InvalidateTokens marks every unused token of purpose for the account as used.
func (s *SQLiteStore) InvalidateTokens(ctx context.Context, accountID, purpose string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE auth_token SET used = 1 WHERE account_id = ? AND purpose = ? AND used = 0",
		accountID, purpose)
	return err
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...interface{}) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	err := scan(
		&entity.ID,
		&entity.Email,
		&entity.PasswordHash,
		&entity.Status,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt = storage.ParseTime(createdAt)
	if lockedUntil.Valid && lockedUntil.String != "" {
		entity.LockedUntil = storage.ParseTime(lockedUntil.String)
	}
	return entity, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
