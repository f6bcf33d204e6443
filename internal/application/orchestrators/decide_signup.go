package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	emailPkg "signups/internal/adapters/email"
	"signups/internal/domain/activity"
	"signups/internal/domain/audit"
	"signups/internal/domain/profile"
	"signups/internal/domain/signup"
)

// SignupStoreForDecide defines the store interface needed by DecideSignup.
type SignupStoreForDecide interface {
	Find(ctx context.Context, id string) (signup.Signup, error)
	UpdateStatus(ctx context.Context, kind activity.Kind, id string, status signup.Status) error
}

// AuditSaver records admin actions.
type AuditSaver interface {
	Save(ctx context.Context, event audit.Event) error
}

// DecideSignupInput carries an admin's approve or deny.
type DecideSignupInput struct {
	Actor    *profile.Profile
	SignupID string
	Decision signup.Decision
}

// DecideSignupDeps holds dependencies for DecideSignup. Mailer, Audit and
// Metrics may be nil.
type DecideSignupDeps struct {
	SignupStore   SignupStoreForDecide
	ActivityStore ActivityReader
	ProfileStore  ProfileReader
	Mailer        emailPkg.Sender
	Audit         AuditSaver
	Metrics       SignupMetrics
	Now           func() time.Time
}

var ErrAdminRequired = errors.New("admin access required")

// ExecuteDecideSignup moves a waitlisted signup to Confirmed or Cancelled and
// tells the member.
// PRE: Actor is an admin
// POST: Only the status column changes; a failed email does not undo the decision
func ExecuteDecideSignup(ctx context.Context, input DecideSignupInput, deps DecideSignupDeps) (signup.Signup, error) {
	if input.Actor == nil || !input.Actor.IsAdmin {
		return signup.Signup{}, ErrAdminRequired
	}
	s, err := deps.SignupStore.Find(ctx, input.SignupID)
	if err != nil {
		return signup.Signup{}, err
	}
	if err := s.Decide(input.Decision); err != nil {
		return signup.Signup{}, err
	}
	if err := deps.SignupStore.UpdateStatus(ctx, s.Kind, s.ID, s.Status); err != nil {
		return signup.Signup{}, err
	}

	slog.Info("signup_event", "event", "signup_decided", "signup_id", s.ID, "decision", input.Decision, "status", s.Status, "actor_id", input.Actor.ID)
	if deps.Metrics != nil {
		deps.Metrics.Decision(string(input.Decision))
	}

	a, err := deps.ActivityStore.GetByID(ctx, s.ActivityID)
	if err != nil {
		slog.Error("signup_event", "event", "decision_activity_lookup_failed", "signup_id", s.ID, "error", err)
		return s, nil
	}
	if deps.Audit != nil {
		action := audit.ActionApprove
		if input.Decision == signup.DecisionDeny {
			action = audit.ActionDeny
		}
		ev := audit.NewEvent(input.Actor.ID, input.Actor.Email, audit.CategorySignup, action, deps.Now()).
			WithResource("signup", s.ID).
			WithDescription(string(action) + " signup for " + a.Name)
		if err := deps.Audit.Save(ctx, ev); err != nil {
			slog.Error("audit_save_failed", "error", err, "signup_id", s.ID)
		}
	}
	notifyDecision(ctx, s, a, deps)
	return s, nil
}

func notifyDecision(ctx context.Context, s signup.Signup, a activity.Activity, deps DecideSignupDeps) {
	if deps.Mailer == nil {
		return
	}
	member, err := deps.ProfileStore.GetByID(ctx, s.UserID)
	if err != nil || member.Email == "" {
		slog.Warn("signup_event", "event", "decision_email_skipped", "signup_id", s.ID, "error", err)
		return
	}
	msg, err := emailPkg.DecisionEmail(member.Email, member.Name, a.Name, s.Status == signup.StatusConfirmed)
	if err == nil {
		_, err = deps.Mailer.Send(ctx, msg)
	}
	if err != nil {
		slog.Error("signup_event", "event", "decision_email_failed", "signup_id", s.ID, "error", err)
	}
}
