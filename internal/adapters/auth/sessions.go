package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"signups/internal/domain/authsession"
)

// RecoveryTTL bounds a session opened from a password recovery link.
const RecoveryTTL = 15 * time.Minute

// SessionStore is an in-memory session table that notifies subscribers of
// every change to a session.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]authsession.Session
	subs     map[string]map[int]func(authsession.Event)
	nextSub  int
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions live for ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]authsession.Session),
		subs:     make(map[string]map[int]func(authsession.Event)),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create opens a session for the account.
// POST: Subscribers of the new token see SignedIn, or PasswordRecovery when recovery is set
func (ss *SessionStore) Create(accountID, email string, recovery bool) (authsession.Session, error) {
	token, err := generateToken()
	if err != nil {
		return authsession.Session{}, err
	}
	now := ss.now()
	ttl := ss.ttl
	if recovery {
		ttl = RecoveryTTL
	}
	s := authsession.Session{
		Token:     token,
		AccountID: accountID,
		Email:     email,
		Recovery:  recovery,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	ss.mu.Lock()
	ss.sessions[token] = s
	ss.mu.Unlock()

	kind := authsession.SignedIn
	if recovery {
		kind = authsession.PasswordRecovery
	}
	ss.publish(authsession.Event{Kind: kind, Token: token, Session: &s})
	return s, nil
}

// Get returns the live session for token.
// POST: Expired sessions are removed and reported as absent
func (ss *SessionStore) Get(token string) (authsession.Session, bool) {
	ss.mu.RLock()
	s, ok := ss.sessions[token]
	ss.mu.RUnlock()
	if !ok {
		return authsession.Session{}, false
	}
	if s.Expired(ss.now()) {
		ss.Delete(token)
		return authsession.Session{}, false
	}
	return s, true
}

// MarkUpdated ends recovery mode for the session and announces UserUpdated.
func (ss *SessionStore) MarkUpdated(token string) bool {
	ss.mu.Lock()
	s, ok := ss.sessions[token]
	if ok && s.Recovery {
		s.Recovery = false
		s.ExpiresAt = ss.now().Add(ss.ttl)
		ss.sessions[token] = s
	}
	ss.mu.Unlock()
	if !ok {
		return false
	}
	ss.publish(authsession.Event{Kind: authsession.UserUpdated, Token: token, Session: &s})
	return true
}

// Delete removes a session and announces SignedOut.
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	_, ok := ss.sessions[token]
	delete(ss.sessions, token)
	ss.mu.Unlock()
	if ok {
		ss.publish(authsession.Event{Kind: authsession.SignedOut, Token: token})
	}
}

// DeleteForAccount signs out every session of an account except keep.
func (ss *SessionStore) DeleteForAccount(accountID, keep string) int {
	ss.mu.RLock()
	var tokens []string
	for token, s := range ss.sessions {
		if s.AccountID == accountID && token != keep {
			tokens = append(tokens, token)
		}
	}
	ss.mu.RUnlock()
	for _, token := range tokens {
		ss.Delete(token)
	}
	return len(tokens)
}

// Subscribe registers fn for changes to token's session. The returned
// function unsubscribes.
func (ss *SessionStore) Subscribe(token string, fn func(authsession.Event)) func() {
	ss.mu.Lock()
	id := ss.nextSub
	ss.nextSub++
	if ss.subs[token] == nil {
		ss.subs[token] = make(map[int]func(authsession.Event))
	}
	ss.subs[token][id] = fn
	ss.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			ss.mu.Lock()
			defer ss.mu.Unlock()
			delete(ss.subs[token], id)
			if len(ss.subs[token]) == 0 {
				delete(ss.subs, token)
			}
		})
	}
}

// publish calls subscribers outside the lock so they may call back into the store.
func (ss *SessionStore) publish(ev authsession.Event) {
	ss.mu.RLock()
	fns := make([]func(authsession.Event), 0, len(ss.subs[ev.Token]))
	for _, fn := range ss.subs[ev.Token] {
		fns = append(fns, fn)
	}
	ss.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
