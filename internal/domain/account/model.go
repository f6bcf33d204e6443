package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength    = 254
	MinPasswordLength = 8
)

// Account status constants
const (
	StatusActive              = "active"
	StatusPendingConfirmation = "pending_confirmation"
)

// Token purpose constants
const (
	PurposeConfirm  = "confirm"
	PurposeRecovery = "recovery"
)

// Token lifetimes.
const (
	ConfirmTokenTTL  = 48 * time.Hour
	RecoveryTokenTTL = time.Hour
)

// Domain errors
var (
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrTokenExpired     = errors.New("link has expired")
	ErrTokenInvalid     = errors.New("link is invalid")
	ErrAlreadyConfirmed = errors.New("account is already confirmed")
	ErrNotPending       = errors.New("account is not pending confirmation")
	ErrNotFound         = errors.New("account not found")
	ErrEmailTooLong     = errors.New("email cannot exceed 254 characters")
)

// Account is the authentication identity. The club-facing record lives in profile.Profile.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Status       string // active, pending_confirmation
	CreatedAt    time.Time
	FailedLogins int
	LockedUntil  time.Time
}

// Token is a single-use, time-limited token sent by email.
type Token struct {
	ID        string
	AccountID string
	Purpose   string
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrEmptyEmail
	}
	if len(a.Email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	if a.Status != StatusActive && a.Status != StatusPendingConfirmation {
		return errors.New("status must be active or pending_confirmation")
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt with cost 12.
// PRE: plaintext is non-empty and >= MinPasswordLength characters
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked returns true if the account is currently locked out.
func (a *Account) IsLocked(now time.Time) bool {
	if a.LockedUntil.IsZero() {
		return false
	}
	return now.Before(a.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the account after 5 failures.
// POST: FailedLogins incremented; LockedUntil set if >= 5 failures
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= 5 {
		a.LockedUntil = now.Add(15 * time.Minute)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}

// IsPendingConfirmation returns true until the email link has been followed.
func (a *Account) IsPendingConfirmation() bool {
	return a.Status == StatusPendingConfirmation
}

// Confirm transitions the account from pending to active.
// PRE: Account is in pending_confirmation status
// POST: Status is set to active
func (a *Account) Confirm() error {
	if a.Status == StatusActive {
		return ErrAlreadyConfirmed
	}
	if a.Status != StatusPendingConfirmation {
		return ErrNotPending
	}
	a.Status = StatusActive
	return nil
}

// IsExpired returns true if the token has expired.
func (t *Token) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Check reports why a token cannot be redeemed for purpose, or nil.
func (t *Token) Check(purpose string, now time.Time) error {
	if t.Used || t.Purpose != purpose {
		return ErrTokenInvalid
	}
	if t.IsExpired(now) {
		return ErrTokenExpired
	}
	return nil
}

// Invalidate marks the token as used.
func (t *Token) Invalidate() {
	t.Used = true
}
