// Package routeguard decides whether a request may see a member-only or
// admin-only view. Evaluate is pure and is called on every request; its
// result is never cached.
package routeguard

import "signups/internal/application/authstate"

// State is the guard's verdict.
type State int

const (
	Loading State = iota
	Unauthenticated
	NeedsSetup
	Authorized
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case NeedsSetup:
		return "needs_setup"
	case Authorized:
		return "authorized"
	}
	return "unknown"
}

// Redirect targets
const (
	SignInPath    = "/"
	SetupPath     = "/setup"
	DashboardPath = "/dashboard"
)

// Requirement describes what a route needs beyond a complete profile.
type Requirement struct {
	Admin bool
}

// Decision is the outcome for one request. Redirect is empty when the
// content may be rendered or when the caller must wait (Loading).
type Decision struct {
	State    State
	Redirect string
}

// Allowed reports whether guarded content may be rendered.
func (d Decision) Allowed() bool {
	return d.State == Authorized && d.Redirect == ""
}

// Evaluate maps an auth snapshot to a decision.
// INVARIANT: no access decision is made while st.Loading is true
// INVARIANT: a nil session never yields Authorized
func Evaluate(st authstate.State, req Requirement) Decision {
	switch {
	case st.Loading:
		return Decision{State: Loading}
	case st.Session == nil:
		return Decision{State: Unauthenticated, Redirect: SignInPath}
	case !st.Profile.IsComplete():
		return Decision{State: NeedsSetup, Redirect: SetupPath}
	case req.Admin && !st.IsAdmin:
		return Decision{State: Authorized, Redirect: DashboardPath}
	}
	return Decision{State: Authorized}
}
