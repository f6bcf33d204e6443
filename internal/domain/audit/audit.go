package audit

import (
	"time"

	"github.com/google/uuid"
)

// Category represents the type of audit event.
type Category string

const (
	CategoryAccount  Category = "account"
	CategoryActivity Category = "activity"
	CategorySignup   Category = "signup"
	CategorySystem   Category = "system"
)

// Action represents the action that occurred.
type Action string

const (
	ActionCreate  Action = "create"
	ActionApprove Action = "approve"
	ActionDeny    Action = "deny"
	ActionExport  Action = "export"
	ActionUpload  Action = "upload"
	ActionMigrate Action = "migrate"
)

// Event represents a single audit log entry for an admin action.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	ActorID      string    `json:"actor_id"`
	ActorEmail   string    `json:"actor_email"`
	ResourceID   string    `json:"resource_id"`
	ResourceType string    `json:"resource_type"`
	Description  string    `json:"description"`
}

// NewEvent creates a new audit event stamped with now.
// PRE: actorID and action are non-empty
// POST: Returns an Event with a fresh ID
func NewEvent(actorID, actorEmail string, category Category, action Action, now time.Time) Event {
	return Event{
		ID:         uuid.New().String(),
		Timestamp:  now,
		Category:   category,
		Action:     action,
		ActorID:    actorID,
		ActorEmail: actorEmail,
	}
}

// WithResource sets resource information.
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}
