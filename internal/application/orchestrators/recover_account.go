package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	emailPkg "signups/internal/adapters/email"
	"signups/internal/domain/account"
	"signups/internal/domain/authsession"
)

// AccountStoreForTokens defines the store interface needed by the emailed-link flows.
type AccountStoreForTokens interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	SaveToken(ctx context.Context, t account.Token) error
	GetToken(ctx context.Context, token string) (account.Token, error)
	InvalidateTokens(ctx context.Context, accountID, purpose string) error
}

// TokenFlowDeps holds dependencies for confirmation and recovery.
type TokenFlowDeps struct {
	AccountStore AccountStoreForTokens
	Sessions     SessionCreator
	Mailer       emailPkg.Sender
	BaseURL      string
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteConfirmAccount redeems a confirmation link and signs the member in.
// POST: Account is active; token is used; a new session is returned
func ExecuteConfirmAccount(ctx context.Context, token string, deps TokenFlowDeps) (authsession.Session, error) {
	tok, acct, err := redeem(ctx, token, account.PurposeConfirm, deps)
	if err != nil {
		return authsession.Session{}, err
	}
	if err := acct.Confirm(); err != nil && !errors.Is(err, account.ErrAlreadyConfirmed) {
		return authsession.Session{}, err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return authsession.Session{}, err
	}
	tok.Invalidate()
	if err := deps.AccountStore.SaveToken(ctx, tok); err != nil {
		return authsession.Session{}, err
	}

	slog.Info("auth_event", "event", "account_confirmed", "account_id", acct.ID)
	return deps.Sessions.Create(acct.ID, acct.Email, false)
}

// ExecuteRequestPasswordReset emails a recovery link. Unknown addresses are
// accepted silently so the form does not reveal which emails have accounts.
// Pending accounts get a fresh confirmation link instead.
// POST: Earlier unused recovery links for the account are invalidated
func ExecuteRequestPasswordReset(ctx context.Context, email string, deps TokenFlowDeps) error {
	acct, err := deps.AccountStore.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, account.ErrNotFound) {
		slog.Info("auth_event", "event", "reset_requested", "reason", "unknown_email")
		return nil
	}
	if err != nil {
		return err
	}

	purpose := account.PurposeRecovery
	if acct.IsPendingConfirmation() {
		purpose = account.PurposeConfirm
	}
	if err := deps.AccountStore.InvalidateTokens(ctx, acct.ID, purpose); err != nil {
		return err
	}
	return sendToken(ctx, acct, purpose, deps.AccountStore, deps.Mailer, deps.BaseURL, deps.GenerateID, deps.Now())
}

// ExecuteRecoverSession redeems a recovery link and opens a recovery session,
// which may only be used to set a new password.
func ExecuteRecoverSession(ctx context.Context, token string, deps TokenFlowDeps) (authsession.Session, error) {
	tok, acct, err := redeem(ctx, token, account.PurposeRecovery, deps)
	if err != nil {
		return authsession.Session{}, err
	}
	tok.Invalidate()
	if err := deps.AccountStore.SaveToken(ctx, tok); err != nil {
		return authsession.Session{}, err
	}

	slog.Info("auth_event", "event", "recovery_session_opened", "account_id", acct.ID)
	return deps.Sessions.Create(acct.ID, acct.Email, true)
}

func redeem(ctx context.Context, token, purpose string, deps TokenFlowDeps) (account.Token, account.Account, error) {
	if token == "" {
		return account.Token{}, account.Account{}, account.ErrTokenInvalid
	}
	tok, err := deps.AccountStore.GetToken(ctx, token)
	if err != nil {
		return account.Token{}, account.Account{}, err
	}
	if err := tok.Check(purpose, deps.Now()); err != nil {
		slog.Info("auth_event", "event", "token_rejected", "account_id", tok.AccountID, "purpose", purpose, "reason", err.Error())
		return account.Token{}, account.Account{}, err
	}
	acct, err := deps.AccountStore.GetByID(ctx, tok.AccountID)
	if err != nil {
		return account.Token{}, account.Account{}, err
	}
	return tok, acct, nil
}
