package profile

import (
	"context"

	domain "signups/internal/domain/profile"
)

// Store persists Profile state in the users table.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Profile, error)
	Save(ctx context.Context, value domain.Profile) error
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
}
