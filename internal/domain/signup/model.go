package signup

import (
	"errors"
	"time"

	"signups/internal/domain/activity"
	"signups/internal/domain/profile"
)

// Status is the closed set of signup states. Stored literals from older
// data are normalised by ParseStatus when rows are read.
type Status string

// Status constants
const (
	StatusConfirmed   Status = "Confirmed"
	StatusWaitingList Status = "WaitingList"
	StatusCancelled   Status = "Cancelled"
	StatusUnknown     Status = "Unknown"
)

// Decision is an admin's verdict on a waitlisted signup.
type Decision string

// Decision constants
const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// Domain errors
var (
	ErrAlreadySignedUpThisWeek = errors.New("already signed up for this session this week")
	ErrInvalidTransition       = errors.New("only waitlisted signups can be approved or denied")
	ErrInvalidDecision         = errors.New("decision must be approve or deny")
	ErrNotFound                = errors.New("signup not found")
	ErrNotOwner                = errors.New("signup belongs to another member")
	ErrEmptyUserID             = errors.New("signup needs a user")
	ErrEmptyActivityID         = errors.New("signup needs an activity")
	ErrBothTransportFlags      = errors.New("only one of can drive and needs transport may be set")
)

// MsgAlreadySignedUpThisWeek is shown for a duplicate weekly session signup.
const MsgAlreadySignedUpThisWeek = "You've already signed up for this session this week."

// ParseStatus normalises a stored status literal.
// "Pending" and "Waiting List" are historical spellings of WaitingList.
func ParseStatus(s string) Status {
	switch s {
	case "Confirmed":
		return StatusConfirmed
	case "WaitingList", "Waiting List", "Pending":
		return StatusWaitingList
	case "Cancelled":
		return StatusCancelled
	}
	return StatusUnknown
}

// InitialStatus is the status a new signup starts in.
// POST: WaitingList iff requiresApproval
func InitialStatus(requiresApproval bool) Status {
	if requiresApproval {
		return StatusWaitingList
	}
	return StatusConfirmed
}

// Signup is one member's registration for one activity. Kind selects the
// underlying table; WeekStart is only set for session signups.
type Signup struct {
	ID              string
	UserID          string
	ActivityID      string
	Kind            activity.Kind
	CanDrive        bool
	TransportNeeded bool
	Status          Status
	WeekStart       time.Time
	CreatedAt       time.Time
}

// New builds the signup written when a member requests a place.
// PRE: a is a validated activity; t came from profile.TransportFor
// POST: Status is InitialStatus(a.RequiresApproval)
func New(id, userID string, a *activity.Activity, t profile.Transport, now time.Time) Signup {
	s := Signup{
		ID:              id,
		UserID:          userID,
		ActivityID:      a.ID,
		Kind:            a.Kind,
		CanDrive:        t.CanDrive,
		TransportNeeded: t.TransportNeeded,
		Status:          InitialStatus(a.RequiresApproval),
		CreatedAt:       now,
	}
	if a.Kind == activity.KindSession {
		s.WeekStart = activity.WeekStart(now)
	}
	return s
}

// Validate checks if the Signup has valid data.
func (s *Signup) Validate() error {
	if s.UserID == "" {
		return ErrEmptyUserID
	}
	if s.ActivityID == "" {
		return ErrEmptyActivityID
	}
	if _, err := activity.ParseKind(string(s.Kind)); err != nil {
		return err
	}
	if s.CanDrive && s.TransportNeeded {
		return ErrBothTransportFlags
	}
	return nil
}

// Decide applies an admin decision.
// PRE: Status is WaitingList
// POST: Status is Confirmed or Cancelled; no other field changes
func (s *Signup) Decide(d Decision) error {
	if s.Status != StatusWaitingList {
		return ErrInvalidTransition
	}
	switch d {
	case DecisionApprove:
		s.Status = StatusConfirmed
	case DecisionDeny:
		s.Status = StatusCancelled
	default:
		return ErrInvalidDecision
	}
	return nil
}

// IsActionable reports whether an admin may approve or deny the signup.
func (s *Signup) IsActionable(requiresApproval bool) bool {
	return requiresApproval && s.Status == StatusWaitingList
}

// Color names a display style.
type Color string

// Color constants
const (
	ColorSuccess Color = "success"
	ColorNeutral Color = "neutral"
	ColorError   Color = "error"
	ColorWarning Color = "warning"
)

// Label is a status chip.
type Label struct {
	Text  string
	Color Color
}

// Display maps any status to a label. It is total: unrecognised values
// still get a neutral style.
func Display(s Status) Label {
	switch ParseStatus(string(s)) {
	case StatusConfirmed:
		return Label{Text: "Confirmed", Color: ColorSuccess}
	case StatusWaitingList:
		return Label{Text: "On Waitlist", Color: ColorNeutral}
	case StatusCancelled:
		return Label{Text: "Cancelled", Color: ColorError}
	}
	return Label{Text: "Unknown", Color: ColorNeutral}
}

// Action is what a member may do from an activity tile.
type Action string

// Action constants
const (
	ActionNone              Action = "none"
	ActionRequestSignup     Action = "request_signup"
	ActionRequestWaitlisted Action = "request_waitlisted"
	ActionCancel            Action = "cancel"
)

// Button texts
const (
	ButtonSignUp       = "Sign Up"
	ButtonJoinWaitlist = "Join Waitlist"
	ButtonSignedUp     = "You are signed up"
	ButtonOnWaitlist   = "On Waitlist"
	ButtonNotYetOpen   = "Signups Open on Monday"
)

// TileView is the per-tile decision for one member and one activity.
// Status is nil when the member has not signed up.
type TileView struct {
	Action     Action
	ButtonText string
	Disabled   bool
	Status     *Label
}

// Tile computes the allowed action for an activity given the member's
// current status (nil means not signed up).
func Tile(a *activity.Activity, status *Status, now time.Time) TileView {
	if status != nil {
		label := Display(*status)
		var text string
		switch ParseStatus(string(*status)) {
		case StatusConfirmed:
			text = ButtonSignedUp
		case StatusWaitingList:
			text = ButtonOnWaitlist
		default:
			// Denied or unreadable rows show their label, never "signed up".
			text = label.Text
		}
		return TileView{Action: ActionCancel, ButtonText: text, Disabled: true, Status: &label}
	}
	if !a.SignupsOpen(now) {
		return TileView{Action: ActionNone, ButtonText: ButtonNotYetOpen, Disabled: true}
	}
	if a.RequiresApproval {
		return TileView{Action: ActionRequestWaitlisted, ButtonText: ButtonJoinWaitlist}
	}
	return TileView{Action: ActionRequestSignup, ButtonText: ButtonSignUp}
}

// ConfirmationMessage is shown after a successful signup request.
func ConfirmationMessage(requiresApproval bool, activityName string) string {
	if requiresApproval {
		return "You have been added to the waitlist for " + activityName
	}
	return "You are signed up for " + activityName
}
