package signup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"signups/internal/adapters/storage"
	"signups/internal/domain/activity"
	domain "signups/internal/domain/signup"
)

// table is one of the two physical signup tables. Session signups carry a
// week_start column; event signups do not.
type table struct {
	db             storage.SQLDB
	name           string
	activityColumn string
	weekly         bool
}

func (t *table) kind() activity.Kind {
	if t.weekly {
		return activity.KindSession
	}
	return activity.KindEvent
}

func (t *table) columns() string {
	cols := "id, user_id, " + t.activityColumn + ", can_drive, transport_needed, status, created_at"
	if t.weekly {
		cols += ", week_start"
	}
	return cols
}

func (t *table) insert(ctx context.Context, s domain.Signup) error {
	args := []interface{}{
		s.ID, s.UserID, s.ActivityID,
		storage.BoolInt(s.CanDrive), storage.BoolInt(s.TransportNeeded),
		string(s.Status), storage.FormatTime(s.CreatedAt),
	}
	placeholders := "?, ?, ?, ?, ?, ?, ?"
	if t.weekly {
		args = append(args, s.WeekStart.Format(storage.DateFormat))
		placeholders += ", ?"
	}
	_, err := t.db.ExecContext(ctx, "INSERT INTO "+t.name+" ("+t.columns()+") VALUES ("+placeholders+")", args...)
	return err
}

func (t *table) get(ctx context.Context, id string) (domain.Signup, error) {
	row := t.db.QueryRowContext(ctx, "SELECT "+t.columns()+" FROM "+t.name+" WHERE id = ?", id)
	s, err := t.scan(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Signup{}, fmt.Errorf("signup %s: %w", id, domain.ErrNotFound)
	}
	return s, err
}

func (t *table) updateStatus(ctx context.Context, id string, status domain.Status) error {
	res, err := t.db.ExecContext(ctx, "UPDATE "+t.name+" SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("signup %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (t *table) delete(ctx context.Context, id string) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("signup %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (t *table) listForUser(ctx context.Context, userID string, week time.Time) ([]domain.Signup, error) {
	q := "SELECT " + t.columns() + " FROM " + t.name + " WHERE user_id = ?"
	args := []interface{}{userID}
	if t.weekly {
		q += " AND week_start = ?"
		args = append(args, week.Format(storage.DateFormat))
	}
	rows, err := t.db.QueryContext(ctx, q+" ORDER BY created_at", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Signup
	for rows.Next() {
		s, err := t.scan(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// scan reads a row and normalises its status literal.
func (t *table) scan(scan func(dest ...interface{}) error) (domain.Signup, error) {
	s := domain.Signup{Kind: t.kind()}
	var canDrive, transportNeeded int
	var status, createdAt, weekStart string
	dest := []interface{}{&s.ID, &s.UserID, &s.ActivityID, &canDrive, &transportNeeded, &status, &createdAt}
	if t.weekly {
		dest = append(dest, &weekStart)
	}
	if err := scan(dest...); err != nil {
		return domain.Signup{}, err
	}
	s.CanDrive = canDrive != 0
	s.TransportNeeded = transportNeeded != 0
	s.Status = domain.ParseStatus(status)
	s.CreatedAt = storage.ParseTime(createdAt)
	if t.weekly {
		s.WeekStart = storage.ParseTime(weekStart)
	}
	return s, nil
}
