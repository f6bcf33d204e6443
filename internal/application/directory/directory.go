// Package directory is the member's view of what can be signed up for: the
// upcoming activities and, for each, the member's own signup status.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	activityStore "signups/internal/adapters/storage/activity"
	"signups/internal/domain/activity"
	"signups/internal/domain/audit"
	"signups/internal/domain/profile"
	"signups/internal/domain/signup"
)

// DefaultImageURL is used when an activity has no image and photo search
// found nothing.
const DefaultImageURL = "/img/default-activity.jpg"

// ErrNotAdmin is returned when a non-admin tries to create an activity.
var ErrNotAdmin = errors.New("only admins can create activities")

// ActivityStore is the activity persistence the directory needs.
type ActivityStore interface {
	List(ctx context.Context, filter activityStore.ListFilter) ([]activity.Activity, error)
	Save(ctx context.Context, value activity.Activity) error
}

// SignupLister lists a member's signups for a week.
type SignupLister interface {
	ListForUser(ctx context.Context, userID string, week time.Time) ([]signup.Signup, error)
}

// PhotoSearcher returns an image for a query, or nil.
type PhotoSearcher interface {
	Search(ctx context.Context, query string) *activity.Image
}

// AuditSaver records admin actions.
type AuditSaver interface {
	Save(ctx context.Context, event audit.Event) error
}

// Deps holds the directory's collaborators. Photos and Audit may be nil.
type Deps struct {
	Activities ActivityStore
	Signups    SignupLister
	Photos     PhotoSearcher
	Audit      AuditSaver
	GenerateID func() string
	Now        func() time.Time
}

// LoadActivities returns activities dated on or after asOf's day, soonest first.
func LoadActivities(ctx context.Context, store ActivityStore, asOf time.Time) ([]activity.Activity, error) {
	all, err := store.List(ctx, activityStore.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	upcoming, _ := activity.PartitionByDate(all, asOf)
	return upcoming, nil
}

// LoadPastActivities returns activities dated before asOf's day, most recent
// first. Only the admin review panel uses it.
func LoadPastActivities(ctx context.Context, store ActivityStore, asOf time.Time) ([]activity.Activity, error) {
	all, err := store.List(ctx, activityStore.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("load past activities: %w", err)
	}
	_, past := activity.PartitionByDate(all, asOf)
	return past, nil
}

// LoadMySignupStatuses maps activity ID to the member's status. Session
// signups count only for the week containing asOf. A missing key means the
// member has not signed up.
func LoadMySignupStatuses(ctx context.Context, lister SignupLister, userID string, asOf time.Time) (map[string]signup.Status, error) {
	list, err := lister.ListForUser(ctx, userID, activity.WeekStart(asOf))
	if err != nil {
		return nil, fmt.Errorf("load signup statuses: %w", err)
	}
	out := make(map[string]signup.Status, len(list))
	for _, s := range list {
		out[s.ActivityID] = s.Status
	}
	return out, nil
}

// Directory caches one member's activity list and statuses. It is built per
// request and refreshed after every write.
type Directory struct {
	deps Deps

	mu         sync.RWMutex
	userID     string
	asOf       time.Time
	activities []activity.Activity
	statuses   map[string]signup.Status
}

// New creates an empty directory.
func New(deps Deps) *Directory {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Directory{deps: deps, statuses: map[string]signup.Status{}}
}

// Refresh reloads activities and the member's statuses.
// POST: On error the previous contents are kept
func (d *Directory) Refresh(ctx context.Context, asOf time.Time, userID string) error {
	list, err := LoadActivities(ctx, d.deps.Activities, asOf)
	if err != nil {
		return err
	}
	statuses := map[string]signup.Status{}
	if userID != "" {
		if statuses, err = LoadMySignupStatuses(ctx, d.deps.Signups, userID, asOf); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.userID, d.asOf = userID, asOf
	d.activities = list
	d.statuses = statuses
	return nil
}

// Activities returns a copy of the cached upcoming activities.
func (d *Directory) Activities() []activity.Activity {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]activity.Activity(nil), d.activities...)
}

// Get returns a cached activity by ID.
func (d *Directory) Get(id string) (activity.Activity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.activities {
		if a.ID == id {
			return a, true
		}
	}
	return activity.Activity{}, false
}

// StatusFor returns the member's status for an activity, nil when not signed up.
func (d *Directory) StatusFor(activityID string) *signup.Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.statuses[activityID]
	if !ok {
		return nil
	}
	return &s
}

// Draft is the create-activity form.
type Draft struct {
	Kind                 activity.Kind
	Name                 string
	Date                 time.Time
	Location             string
	Description          string
	ImageURL             string
	RequiresApproval     bool
	Weekday              time.Weekday
	EarlyWeekSignupsOnly bool
}

// DraftError carries the submitted form back to the caller so nothing the
// admin typed is lost.
type DraftError struct {
	Draft Draft
	Err   error
}

func (e *DraftError) Error() string { return "create activity: " + e.Err.Error() }

func (e *DraftError) Unwrap() error { return e.Err }

// CreateActivity inserts a new activity and reloads the directory.
// PRE: actor is the signed-in admin's profile
// POST: On failure returns *DraftError holding draft unchanged
func (d *Directory) CreateActivity(ctx context.Context, actor *profile.Profile, draft Draft) (activity.Activity, error) {
	fail := func(err error) (activity.Activity, error) {
		return activity.Activity{}, &DraftError{Draft: draft, Err: err}
	}
	if actor == nil || !actor.IsAdmin {
		return fail(ErrNotAdmin)
	}

	now := d.deps.Now()
	a := activity.Activity{
		ID:                   d.deps.GenerateID(),
		Kind:                 draft.Kind,
		Name:                 strings.TrimSpace(draft.Name),
		Date:                 draft.Date,
		Location:             strings.TrimSpace(draft.Location),
		Description:          draft.Description,
		Image:                activity.Image{URL: strings.TrimSpace(draft.ImageURL)},
		RequiresApproval:     draft.RequiresApproval,
		Weekday:              draft.Weekday,
		EarlyWeekSignupsOnly: draft.EarlyWeekSignupsOnly,
		CreatedAt:            now,
	}
	if err := a.Validate(); err != nil {
		return fail(err)
	}

	if a.Image.URL == "" {
		if d.deps.Photos != nil {
			if img := d.deps.Photos.Search(ctx, a.Name); img != nil {
				a.Image = *img
			}
		}
		if a.Image.URL == "" {
			a.Image.URL = DefaultImageURL
		}
	}

	if err := d.deps.Activities.Save(ctx, a); err != nil {
		return fail(err)
	}
	slog.Info("activity_event", "event", "activity_created", "activity_id", a.ID, "kind", a.Kind, "actor_id", actor.ID)

	if d.deps.Audit != nil {
		ev := audit.NewEvent(actor.ID, actor.Email, audit.CategoryActivity, audit.ActionCreate, now).
			WithResource(string(a.Kind), a.ID).
			WithDescription("Created " + string(a.Kind) + " " + a.Name)
		if err := d.deps.Audit.Save(ctx, ev); err != nil {
			slog.Error("audit_save_failed", "error", err, "activity_id", a.ID)
		}
	}

	d.mu.RLock()
	userID := d.userID
	d.mu.RUnlock()
	if err := d.Refresh(ctx, now, userID); err != nil {
		slog.Error("directory_reload_failed", "error", err)
	}
	return a, nil
}
