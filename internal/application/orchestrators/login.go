package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"signups/internal/domain/account"
	"signups/internal/domain/authsession"
)

// SessionCreator opens authenticated sessions.
type SessionCreator interface {
	Create(accountID, email string, recovery bool) (authsession.Session, error)
}

// AccountStoreForLogin defines the store interface needed by SignIn.
type AccountStoreForLogin interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// SignInInput carries input for the sign-in orchestrator.
type SignInInput struct {
	Email    string
	Password string
}

// SignInDeps holds dependencies for SignIn.
type SignInDeps struct {
	AccountStore AccountStoreForLogin
	Sessions     SessionCreator
	Now          func() time.Time
}

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountLocked        = errors.New("account is locked due to too many failed attempts")
	ErrPendingConfirmation  = errors.New("please confirm your email address before signing in")
	ErrRecoverySessionScope = errors.New("this session can only be used to set a new password")
)

// ExecuteSignIn validates credentials and opens a session.
// PRE: Valid email and password provided
// POST: Returns a new session on success, records failed login on failure
// INVARIANT: Account must not be locked
func ExecuteSignIn(ctx context.Context, input SignInInput, deps SignInDeps) (authsession.Session, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return authsession.Session{}, ErrInvalidCredentials
	}

	acct, err := deps.AccountStore.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			return authsession.Session{}, err
		}
		slog.Info("auth_event", "event", "login_failed", "reason", "not_found")
		return authsession.Session{}, ErrInvalidCredentials
	}

	now := deps.Now()
	if acct.IsLocked(now) {
		slog.Info("auth_event", "event", "login_blocked", "account_id", acct.ID, "reason", "locked")
		return authsession.Session{}, ErrAccountLocked
	}

	if err := acct.CheckPassword(input.Password); err != nil {
		acct.RecordFailedLogin(now)
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			slog.Error("auth_event", "event", "failed_login_not_recorded", "account_id", acct.ID, "error", err)
		}
		slog.Info("auth_event", "event", "login_failed", "account_id", acct.ID, "reason", "wrong_password", "failed_logins", acct.FailedLogins)
		return authsession.Session{}, ErrInvalidCredentials
	}

	if acct.IsPendingConfirmation() {
		slog.Info("auth_event", "event", "login_blocked", "account_id", acct.ID, "reason", "pending_confirmation")
		return authsession.Session{}, ErrPendingConfirmation
	}

	if acct.FailedLogins > 0 {
		acct.ResetFailedLogins()
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			return authsession.Session{}, err
		}
	}

	sess, err := deps.Sessions.Create(acct.ID, acct.Email, false)
	if err != nil {
		return authsession.Session{}, err
	}
	slog.Info("auth_event", "event", "login_success", "account_id", acct.ID)
	return sess, nil
}
