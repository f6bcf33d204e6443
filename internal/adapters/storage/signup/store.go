package signup

import (
	"context"
	"time"

	"signups/internal/domain/activity"
	domain "signups/internal/domain/signup"
)

// Store persists signups of either kind. Implementations route each call to
// the table that backs the signup's activity kind.
type Store interface {
	Create(ctx context.Context, value domain.Signup) error
	GetByID(ctx context.Context, kind activity.Kind, id string) (domain.Signup, error)
	Find(ctx context.Context, id string) (domain.Signup, error)
	UpdateStatus(ctx context.Context, kind activity.Kind, id string, status domain.Status) error
	Delete(ctx context.Context, kind activity.Kind, id string) error
	ListForUser(ctx context.Context, userID string, week time.Time) ([]domain.Signup, error)
}
