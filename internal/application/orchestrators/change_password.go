package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"signups/internal/domain/account"
)

// UpdatePasswordInput carries input for the update-password orchestrator.
// SessionToken is the caller's session; it stays signed in.
type UpdatePasswordInput struct {
	AccountID    string
	SessionToken string
	NewPassword  string
}

// AccountStoreForChangePassword defines the store interface needed by UpdatePassword.
type AccountStoreForChangePassword interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// SessionUpdater announces account changes to live sessions.
type SessionUpdater interface {
	MarkUpdated(token string) bool
	DeleteForAccount(accountID, keep string) int
}

// UpdatePasswordDeps holds dependencies for UpdatePassword.
type UpdatePasswordDeps struct {
	AccountStore AccountStoreForChangePassword
	Sessions     SessionUpdater
}

// ExecuteUpdatePassword sets a new password for a signed-in or recovering account.
// PRE: AccountID is the session's account
// POST: Password is updated, lockout cleared, other sessions signed out
func ExecuteUpdatePassword(ctx context.Context, input UpdatePasswordInput, deps UpdatePasswordDeps) error {
	if input.AccountID == "" || input.SessionToken == "" {
		return errors.New("a session is required")
	}

	acct, err := deps.AccountStore.GetByID(ctx, input.AccountID)
	if err != nil {
		return err
	}
	if err := acct.SetPassword(input.NewPassword); err != nil {
		return err
	}
	acct.ResetFailedLogins()
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	deps.Sessions.MarkUpdated(input.SessionToken)
	n := deps.Sessions.DeleteForAccount(acct.ID, input.SessionToken)

	slog.Info("auth_event", "event", "password_changed", "account_id", acct.ID, "sessions_revoked", n)
	return nil
}
