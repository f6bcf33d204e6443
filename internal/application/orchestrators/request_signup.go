package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"signups/internal/domain/activity"
	"signups/internal/domain/profile"
	"signups/internal/domain/signup"
)

// ActivityReader loads one activity.
type ActivityReader interface {
	GetByID(ctx context.Context, id string) (activity.Activity, error)
}

// ProfileReader loads one profile.
type ProfileReader interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
}

// SignupStoreForRequest defines the store interface needed by RequestSignup.
type SignupStoreForRequest interface {
	Create(ctx context.Context, value signup.Signup) error
	ListForUser(ctx context.Context, userID string, week time.Time) ([]signup.Signup, error)
}

// SignupMetrics counts signup outcomes. Implementations must be nil-safe.
type SignupMetrics interface {
	SignupCreated(kind, status string)
	Decision(decision string)
}

// RequestSignupInput carries a member's signup request. Answer is the
// yes/no transport question; the member's role decides which flag it sets.
type RequestSignupInput struct {
	UserID     string
	ActivityID string
	Answer     bool
}

// RequestSignupResult is returned on success.
type RequestSignupResult struct {
	Signup  signup.Signup
	Message string
	Existed bool // true when the member was already signed up; nothing was written
}

// RequestSignupDeps holds dependencies for RequestSignup.
type RequestSignupDeps struct {
	ActivityStore ActivityReader
	ProfileStore  ProfileReader
	SignupStore   SignupStoreForRequest
	Metrics       SignupMetrics
	GenerateID    func() string
	Now           func() time.Time
}

var ErrProfileIncomplete = errors.New("complete your profile before signing up")

// ExecuteRequestSignup writes a new signup in the activity's initial status.
// PRE: UserID is the signed-in member
// POST: Status is WaitingList iff the activity requires approval
// POST: A duplicate weekly session signup returns signup.ErrAlreadySignedUpThisWeek
func ExecuteRequestSignup(ctx context.Context, input RequestSignupInput, deps RequestSignupDeps) (RequestSignupResult, error) {
	a, err := deps.ActivityStore.GetByID(ctx, input.ActivityID)
	if err != nil {
		return RequestSignupResult{}, err
	}
	p, err := deps.ProfileStore.GetByID(ctx, input.UserID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return RequestSignupResult{}, err
	}
	if err != nil || !p.IsComplete() {
		return RequestSignupResult{}, ErrProfileIncomplete
	}

	now := deps.Now()
	if !a.SignupsOpen(now) {
		return RequestSignupResult{}, activity.ErrSignupsNotOpen
	}

	mine, err := deps.SignupStore.ListForUser(ctx, input.UserID, activity.WeekStart(now))
	if err != nil {
		return RequestSignupResult{}, fmt.Errorf("check existing signups: %w", err)
	}
	for _, s := range mine {
		if s.ActivityID == a.ID && s.Kind == a.Kind {
			return RequestSignupResult{Signup: s, Message: signup.ConfirmationMessage(s.Status == signup.StatusWaitingList, a.Name), Existed: true}, nil
		}
	}

	s := signup.New(deps.GenerateID(), input.UserID, &a, p.TransportFor(input.Answer), now)
	if err := s.Validate(); err != nil {
		return RequestSignupResult{}, err
	}
	if err := deps.SignupStore.Create(ctx, s); err != nil {
		if errors.Is(err, signup.ErrAlreadySignedUpThisWeek) {
			slog.Info("signup_event", "event", "duplicate_weekly_signup", "user_id", input.UserID, "activity_id", a.ID)
		}
		return RequestSignupResult{}, err
	}

	if deps.Metrics != nil {
		deps.Metrics.SignupCreated(string(s.Kind), string(s.Status))
	}
	slog.Info("signup_event", "event", "signup_requested", "signup_id", s.ID, "activity_id", a.ID, "kind", a.Kind, "status", s.Status)
	return RequestSignupResult{Signup: s, Message: signup.ConfirmationMessage(a.RequiresApproval, a.Name)}, nil
}
