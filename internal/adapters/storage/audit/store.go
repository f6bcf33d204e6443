package audit

import (
	"context"

	domain "signups/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	// PRE: event is valid
	// POST: Event is persisted
	Save(ctx context.Context, event domain.Event) error

	// List returns audit events with optional filtering.
	// PRE: limit > 0
	// POST: Returns events ordered by timestamp desc
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)
}

// Filter defines query parameters for listing audit events.
type Filter struct {
	Category   *domain.Category
	ActorID    *string
	ResourceID *string
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
