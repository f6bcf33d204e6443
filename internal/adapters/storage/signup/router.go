package signup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signups/internal/adapters/storage"
	"signups/internal/domain/activity"
	domain "signups/internal/domain/signup"
)

// Router implements Store over the signups and session_signups tables.
type Router struct {
	tables map[activity.Kind]*table
	order  []activity.Kind
}

var _ Store = (*Router)(nil)

// NewRouter creates a signup store backed by both tables.
func NewRouter(db storage.SQLDB) *Router {
	return &Router{
		tables: map[activity.Kind]*table{
			activity.KindEvent:   {db: db, name: "signups", activityColumn: "event_id"},
			activity.KindSession: {db: db, name: "session_signups", activityColumn: "session_id", weekly: true},
		},
		order: []activity.Kind{activity.KindEvent, activity.KindSession},
	}
}

func (r *Router) table(kind activity.Kind) (*table, error) {
	t, ok := r.tables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", activity.ErrInvalidKind, kind)
	}
	return t, nil
}

// Create inserts a new signup.
// PRE: value has been validated
// POST: a duplicate weekly session signup returns domain.ErrAlreadySignedUpThisWeek
func (r *Router) Create(ctx context.Context, value domain.Signup) error {
	t, err := r.table(value.Kind)
	if err != nil {
		return err
	}
	err = t.insert(ctx, value)
	if t.weekly && storage.IsUniqueViolation(err) {
		return domain.ErrAlreadySignedUpThisWeek
	}
	return err
}

// GetByID reads one signup from the table for kind.
func (r *Router) GetByID(ctx context.Context, kind activity.Kind, id string) (domain.Signup, error) {
	t, err := r.table(kind)
	if err != nil {
		return domain.Signup{}, err
	}
	return t.get(ctx, id)
}

// Find looks a signup up by ID in every table.
func (r *Router) Find(ctx context.Context, id string) (domain.Signup, error) {
	for _, kind := range r.order {
		s, err := r.tables[kind].get(ctx, id)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return s, err
		}
	}
	return domain.Signup{}, fmt.Errorf("signup %s: %w", id, domain.ErrNotFound)
}

// UpdateStatus changes only the status column.
func (r *Router) UpdateStatus(ctx context.Context, kind activity.Kind, id string, status domain.Status) error {
	t, err := r.table(kind)
	if err != nil {
		return err
	}
	return t.updateStatus(ctx, id, status)
}

// Delete removes a signup row.
func (r *Router) Delete(ctx context.Context, kind activity.Kind, id string) error {
	t, err := r.table(kind)
	if err != nil {
		return err
	}
	return t.delete(ctx, id)
}

// ListForUser returns the user's event signups plus session signups for
// the week starting at week.
func (r *Router) ListForUser(ctx context.Context, userID string, week time.Time) ([]domain.Signup, error) {
	var out []domain.Signup
	for _, kind := range r.order {
		list, err := r.tables[kind].listForUser(ctx, userID, week)
		if err != nil {
			return nil, fmt.Errorf("list %s signups: %w", kind, err)
		}
		out = append(out, list...)
	}
	return out, nil
}
