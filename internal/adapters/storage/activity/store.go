package activity

import (
	"context"

	domain "signups/internal/domain/activity"
)

// Store persists activities. Events and sessions live in separate tables;
// the store routes by Kind so callers see one Activity type.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Activity, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Activity, error)
	Save(ctx context.Context, value domain.Activity) error
	UpdateImage(ctx context.Context, kind domain.Kind, id string, image domain.Image) error
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Kind domain.Kind // empty for both
}
