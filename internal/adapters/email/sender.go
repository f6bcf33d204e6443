// Package email delivers transactional mail: account confirmation, password
// recovery, and signup decisions.
package email

import (
	"context"
	"time"
)

// SendRequest is one outgoing message.
type SendRequest struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string // overrides the sender's default when set
}

// SendResult is the provider's acknowledgement.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}
