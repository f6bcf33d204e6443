package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"signups/internal/domain/profile"
)

// ProfileStoreForSetup defines the store interface needed by SetupProfile.
type ProfileStoreForSetup interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
	Save(ctx context.Context, p profile.Profile) error
}

// SetupProfileInput carries the account setup form.
type SetupProfileInput struct {
	AccountID     string
	Email         string
	Name          string
	Role          string
	StudentNumber string
	CarSpaces     int
}

// SetupProfileDeps holds dependencies for SetupProfile.
type SetupProfileDeps struct {
	ProfileStore ProfileStoreForSetup
}

var ErrStudentNumberRequired = errors.New("student number is required")

// ExecuteSetupProfile creates or updates the caller's profile.
// PRE: AccountID is the signed-in account
// POST: Profile is complete; IsAdmin is carried over, never set from input
// INVARIANT: One profile per account, keyed by account ID
func ExecuteSetupProfile(ctx context.Context, input SetupProfileInput, deps SetupProfileDeps) (profile.Profile, error) {
	if input.AccountID == "" {
		return profile.Profile{}, errors.New("account ID is required")
	}
	studentNumber := strings.TrimSpace(input.StudentNumber)
	if studentNumber == "" {
		return profile.Profile{}, ErrStudentNumberRequired
	}

	p := profile.Profile{
		ID:            input.AccountID,
		Name:          strings.TrimSpace(input.Name),
		Email:         input.Email,
		Role:          input.Role,
		StudentNumber: &studentNumber,
		CarSpaces:     input.CarSpaces,
	}
	if p.Role != profile.RoleDriver {
		p.CarSpaces = 0
	}

	existing, err := deps.ProfileStore.GetByID(ctx, input.AccountID)
	switch {
	case err == nil:
		p.IsAdmin = existing.IsAdmin
		if p.Email == "" {
			p.Email = existing.Email
		}
	case !errors.Is(err, profile.ErrNotFound):
		return profile.Profile{}, err
	}

	if err := p.Validate(); err != nil {
		return profile.Profile{}, err
	}
	if err := deps.ProfileStore.Save(ctx, p); err != nil {
		return profile.Profile{}, err
	}

	slog.Info("profile_event", "event", "profile_saved", "account_id", p.ID, "role", p.Role)
	return p, nil
}
