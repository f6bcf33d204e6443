package orchestrators

import (
	"context"
	"log/slog"

	"signups/internal/domain/activity"
	"signups/internal/domain/signup"
)

// SignupStoreForCancel defines the store interface needed by CancelSignup.
type SignupStoreForCancel interface {
	GetByID(ctx context.Context, kind activity.Kind, id string) (signup.Signup, error)
	Delete(ctx context.Context, kind activity.Kind, id string) error
}

// CancelSignupInput identifies the signup to remove. Kind selects the table.
type CancelSignupInput struct {
	UserID   string
	Kind     activity.Kind
	SignupID string
}

// CancelSignupDeps holds dependencies for CancelSignup.
type CancelSignupDeps struct {
	SignupStore SignupStoreForCancel
}

// ExecuteCancelSignup deletes the caller's own signup.
// PRE: UserID is the signed-in member
// POST: The row is gone from the table backing Kind; the member may sign up again
func ExecuteCancelSignup(ctx context.Context, input CancelSignupInput, deps CancelSignupDeps) error {
	if _, err := activity.ParseKind(string(input.Kind)); err != nil {
		return err
	}
	s, err := deps.SignupStore.GetByID(ctx, input.Kind, input.SignupID)
	if err != nil {
		return err
	}
	if s.UserID != input.UserID {
		return signup.ErrNotOwner
	}
	if err := deps.SignupStore.Delete(ctx, input.Kind, input.SignupID); err != nil {
		return err
	}
	slog.Info("signup_event", "event", "signup_cancelled", "signup_id", s.ID, "activity_id", s.ActivityID, "kind", s.Kind)
	return nil
}
