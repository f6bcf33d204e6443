package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	emailPkg "signups/internal/adapters/email"
	"signups/internal/domain/account"
	"signups/internal/domain/profile"
)

// AccountStoreForSignUp defines the store interface needed by SignUp.
type AccountStoreForSignUp interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	SaveToken(ctx context.Context, t account.Token) error
}

// SignUpInput carries input for the sign-up orchestrator.
type SignUpInput struct {
	Email    string
	Password string
}

// SignUpDeps holds dependencies for SignUp.
type SignUpDeps struct {
	AccountStore AccountStoreForSignUp
	Mailer       emailPkg.Sender
	BaseURL      string
	GenerateID   func() string
	Now          func() time.Time
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteSignUp creates a pending account and emails a confirmation link.
// PRE: Valid email, password >= 8 chars
// POST: Account saved in pending_confirmation; confirm token issued and mailed
// INVARIANT: Email must be unique
func ExecuteSignUp(ctx context.Context, input SignUpInput, deps SignUpDeps) (string, error) {
	email := normalizeEmail(input.Email)
	if _, err := deps.AccountStore.GetByEmail(ctx, email); err == nil {
		return "", ErrEmailAlreadyExists
	} else if !errors.Is(err, account.ErrNotFound) {
		return "", err
	}

	now := deps.Now()
	acct := account.Account{
		ID:        deps.GenerateID(),
		Email:     email,
		Status:    account.StatusPendingConfirmation,
		CreatedAt: now,
	}
	if err := acct.Validate(); err != nil {
		return "", err
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return "", err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return "", err
	}
	slog.Info("auth_event", "event", "account_created", "account_id", acct.ID)

	if err := sendToken(ctx, acct, account.PurposeConfirm, deps.AccountStore, deps.Mailer, deps.BaseURL, deps.GenerateID, now); err != nil {
		return acct.ID, err
	}
	return acct.ID, nil
}

// sendToken issues a single-use token for acct and emails the matching link.
func sendToken(ctx context.Context, acct account.Account, purpose string, store interface {
	SaveToken(ctx context.Context, t account.Token) error
}, mailer emailPkg.Sender, baseURL string, generateID func() string, now time.Time) error {
	ttl, path, build := account.ConfirmTokenTTL, "/auth/confirm", emailPkg.ConfirmationEmail
	if purpose == account.PurposeRecovery {
		ttl, path, build = account.RecoveryTokenTTL, "/auth/recover", emailPkg.RecoveryEmail
	}

	tok := account.Token{
		ID:        generateID(),
		AccountID: acct.ID,
		Purpose:   purpose,
		Token:     generateID(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := store.SaveToken(ctx, tok); err != nil {
		return err
	}

	msg, err := build(acct.Email, baseURL+path+"?token="+tok.Token)
	if err != nil {
		return err
	}
	if _, err := mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", purpose, err)
	}
	slog.Info("auth_event", "event", "token_sent", "account_id", acct.ID, "purpose", purpose)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountStoreForSeed defines the store interface needed by SeedAdmin.
type AccountStoreForSeed interface {
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// ProfileStoreForSeed defines the profile operations needed by SeedAdmin.
type ProfileStoreForSeed interface {
	Save(ctx context.Context, p profile.Profile) error
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
}

// SeedAdminDeps holds dependencies for SeedAdmin.
type SeedAdminDeps struct {
	AccountStore AccountStoreForSeed
	ProfileStore ProfileStoreForSeed
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSeedAdmin creates an active admin account if no accounts exist.
// The admin completes their profile through account setup like any member.
// PRE: Database is initialized
// POST: Admin account and admin profile exist if count was 0 and password is set
func ExecuteSeedAdmin(ctx context.Context, deps SeedAdminDeps, email, password string) error {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if password == "" {
		slog.Warn("auth_event", "event", "admin_seed_skipped", "reason", "no_password")
		return nil
	}

	acct := account.Account{
		ID:        deps.GenerateID(),
		Email:     normalizeEmail(email),
		Status:    account.StatusActive,
		CreatedAt: deps.Now(),
	}
	if err := acct.Validate(); err != nil {
		return err
	}
	if err := acct.SetPassword(password); err != nil {
		return err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}
	p := profile.Profile{ID: acct.ID, Name: "Administrator", Email: acct.Email, Role: profile.RoleMember}
	if err := deps.ProfileStore.Save(ctx, p); err != nil {
		return err
	}
	if err := deps.ProfileStore.SetAdmin(ctx, acct.ID, true); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "admin_seeded", "account_id", acct.ID)
	return nil
}
