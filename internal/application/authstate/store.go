// Package authstate holds the per-session view of who is signed in: the
// cached session, the member's profile, and whether that profile is still
// being loaded. It replaces a global mutable auth context with an explicit
// store that is started, observed through Subscribe/State, and closed.
package authstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"signups/internal/domain/authsession"
	"signups/internal/domain/profile"
)

// SessionSource is the authentication service: read a session by token and
// subscribe to its changes.
type SessionSource interface {
	Get(token string) (authsession.Session, bool)
	Subscribe(token string, fn func(authsession.Event)) (unsubscribe func())
}

// ProfileLoader fetches the profile owned by an account.
type ProfileLoader interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
}

// State is a snapshot of the store.
// INVARIANT: IsAdmin is true only when Profile is non-nil and Profile.IsAdmin
type State struct {
	Session *authsession.Session
	Profile *profile.Profile
	Loading bool
	IsAdmin bool
}

// Store tracks one session token.
type Store struct {
	token   string
	source  SessionSource
	loader  ProfileLoader
	baseCtx context.Context

	mu          sync.RWMutex
	session     *authsession.Session
	profile     *profile.Profile
	loading     bool
	generation  int
	listeners   map[int]func(State)
	nextID      int
	unsubscribe func()
}

// New creates a store for token. Call Start before reading State.
func New(token string, source SessionSource, loader ProfileLoader) *Store {
	return &Store{
		token:     token,
		source:    source,
		loader:    loader,
		loading:   true,
		listeners: make(map[int]func(State)),
	}
}

// Start reads the current session, subscribes to changes, and loads the
// profile. ctx bounds profile fetches triggered later by session events.
// POST: State().Loading is false once Start returns
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	var current *authsession.Session
	if sess, ok := s.source.Get(s.token); ok {
		current = &sess
	}
	unsubscribe := s.source.Subscribe(s.token, s.handle)

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	s.setSession(ctx, current)
}

// Close stops listening for session changes.
func (s *Store) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.listeners = make(map[int]func(State))
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// GetSession returns the cached session without contacting the source.
func (s *Store) GetSession() *authsession.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// State returns a snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Subscribe registers fn to receive every new state. The returned function
// unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Refresh re-fetches the profile for the current session, e.g. after the
// account setup form was submitted.
func (s *Store) Refresh(ctx context.Context) {
	s.setSession(ctx, s.GetSession())
}

func (s *Store) handle(ev authsession.Event) {
	s.mu.RLock()
	ctx := s.baseCtx
	s.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}

	switch ev.Kind {
	case authsession.SignedOut:
		s.setSession(ctx, nil)
	case authsession.SignedIn, authsession.PasswordRecovery, authsession.UserUpdated:
		s.setSession(ctx, ev.Session)
	default:
		slog.Warn("auth_state_unknown_event", "kind", ev.Kind)
	}
}

// setSession swaps the session and loads its profile. Only the most recent
// change may write its result; an older fetch finishing late is dropped.
func (s *Store) setSession(ctx context.Context, sess *authsession.Session) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.session = sess
	if sess == nil {
		s.profile = nil
		s.loading = false
	} else {
		s.loading = true
	}
	s.notifyLocked()
	s.mu.Unlock()

	if sess == nil {
		return
	}

	p := s.fetchProfile(ctx, sess.AccountID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.profile = p
	s.loading = false
	s.notifyLocked()
}

// fetchProfile returns nil when the profile is missing or cannot be read.
// A nil profile routes the member to account setup.
func (s *Store) fetchProfile(ctx context.Context, accountID string) *profile.Profile {
	p, err := s.loader.GetByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			slog.Error("profile_fetch_failed", "account_id", accountID, "error", err)
		}
		return nil
	}
	return &p
}

func (s *Store) stateLocked() State {
	st := State{Session: s.session, Profile: s.profile, Loading: s.loading}
	st.IsAdmin = s.profile != nil && s.profile.IsAdmin
	return st
}

// notifyLocked runs listeners with the lock held; listeners must not call
// back into the store.
func (s *Store) notifyLocked() {
	st := s.stateLocked()
	for _, fn := range s.listeners {
		fn(st)
	}
}
