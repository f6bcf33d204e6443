// Package authsession models an authenticated browser session and the
// notifications emitted when it changes.
package authsession

import "time"

// EventKind names a session-change notification.
type EventKind string

// Event kinds
const (
	SignedIn         EventKind = "SIGNED_IN"
	SignedOut        EventKind = "SIGNED_OUT"
	PasswordRecovery EventKind = "PASSWORD_RECOVERY"
	UserUpdated      EventKind = "USER_UPDATED"
)

// Session is the server-held record behind a session token.
// A Recovery session may only be used to set a new password.
type Session struct {
	Token     string
	AccountID string
	Email     string
	Recovery  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Event is published to subscribers whenever a session changes.
// Session is nil for SignedOut.
type Event struct {
	Kind    EventKind
	Token   string
	Session *Session
}
