package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	emailPkg "signups/internal/adapters/email"
	activityStore "signups/internal/adapters/storage/activity"
	"signups/internal/domain/account"
	"signups/internal/domain/activity"
	"signups/internal/domain/audit"
	"signups/internal/domain/profile"
	"signups/internal/domain/signup"
)

// Thursday 1 May 2025, mid-morning.
var signupsNow = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return signupsNow }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func strPtr(s string) *string { return &s }

// --- accounts ---

type memAccountStore struct {
	accounts map[string]account.Account
	tokens   map[string]account.Token
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{accounts: map[string]account.Account{}, tokens: map[string]account.Token{}}
}

func (m *memAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return a, nil
}

func (m *memAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return account.Account{}, fmt.Errorf("account %s: %w", email, account.ErrNotFound)
}

func (m *memAccountStore) Save(_ context.Context, a account.Account) error {
	m.accounts[a.ID] = a
	return nil
}

func (m *memAccountStore) Count(_ context.Context) (int, error) {
	return len(m.accounts), nil
}

func (m *memAccountStore) SaveToken(_ context.Context, t account.Token) error {
	m.tokens[t.Token] = t
	return nil
}

func (m *memAccountStore) GetToken(_ context.Context, token string) (account.Token, error) {
	t, ok := m.tokens[token]
	if !ok {
		return account.Token{}, account.ErrTokenInvalid
	}
	return t, nil
}

func (m *memAccountStore) InvalidateTokens(_ context.Context, accountID, purpose string) error {
	for k, t := range m.tokens {
		if t.AccountID == accountID && t.Purpose == purpose {
			t.Used = true
			m.tokens[k] = t
		}
	}
	return nil
}

func (m *memAccountStore) tokenFor(accountID, purpose string) (account.Token, bool) {
	for _, t := range m.tokens {
		if t.AccountID == accountID && t.Purpose == purpose && !t.Used {
			return t, true
		}
	}
	return account.Token{}, false
}

// --- profiles ---

type memProfileStore struct {
	profiles map[string]profile.Profile
	err      error
}

func newMemProfileStore(ps ...profile.Profile) *memProfileStore {
	m := &memProfileStore{profiles: map[string]profile.Profile{}}
	for _, p := range ps {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *memProfileStore) GetByID(_ context.Context, id string) (profile.Profile, error) {
	if m.err != nil {
		return profile.Profile{}, m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return profile.Profile{}, fmt.Errorf("profile %s: %w", id, profile.ErrNotFound)
	}
	return p, nil
}

func (m *memProfileStore) Save(_ context.Context, p profile.Profile) error {
	p.IsAdmin = m.profiles[p.ID].IsAdmin
	m.profiles[p.ID] = p
	return nil
}

func (m *memProfileStore) SetAdmin(_ context.Context, id string, isAdmin bool) error {
	p, ok := m.profiles[id]
	if !ok {
		return profile.ErrNotFound
	}
	p.IsAdmin = isAdmin
	m.profiles[id] = p
	return nil
}

// --- activities ---

type memActivityStore struct {
	mu         sync.Mutex
	activities map[string]activity.Activity
	order      []string
}

func newMemActivityStore(as ...activity.Activity) *memActivityStore {
	m := &memActivityStore{activities: map[string]activity.Activity{}}
	for _, a := range as {
		m.activities[a.ID] = a
		m.order = append(m.order, a.ID)
	}
	return m
}

func (m *memActivityStore) GetByID(_ context.Context, id string) (activity.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return activity.Activity{}, fmt.Errorf("activity %s: %w", id, activity.ErrNotFound)
	}
	return a, nil
}

func (m *memActivityStore) List(_ context.Context, _ activityStore.ListFilter) ([]activity.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]activity.Activity, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.activities[id])
	}
	return out, nil
}

func (m *memActivityStore) UpdateImage(_ context.Context, kind activity.Kind, id string, image activity.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok || a.Kind != kind {
		return activity.ErrNotFound
	}
	a.Image = image
	m.activities[id] = a
	return nil
}

// --- signups ---

type memSignupStore struct {
	signups map[string]signup.Signup
}

func newMemSignupStore(ss ...signup.Signup) *memSignupStore {
	m := &memSignupStore{signups: map[string]signup.Signup{}}
	for _, s := range ss {
		m.signups[s.ID] = s
	}
	return m
}

func (m *memSignupStore) Create(_ context.Context, s signup.Signup) error {
	for _, existing := range m.signups {
		if s.Kind == activity.KindSession && existing.Kind == s.Kind && existing.UserID == s.UserID &&
			existing.ActivityID == s.ActivityID && existing.WeekStart.Equal(s.WeekStart) {
			return signup.ErrAlreadySignedUpThisWeek
		}
	}
	m.signups[s.ID] = s
	return nil
}

func (m *memSignupStore) ListForUser(_ context.Context, userID string, week time.Time) ([]signup.Signup, error) {
	var out []signup.Signup
	for _, s := range m.signups {
		if s.UserID != userID {
			continue
		}
		if s.Kind == activity.KindSession && !s.WeekStart.Equal(week) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memSignupStore) GetByID(_ context.Context, kind activity.Kind, id string) (signup.Signup, error) {
	s, ok := m.signups[id]
	if !ok || s.Kind != kind {
		return signup.Signup{}, signup.ErrNotFound
	}
	return s, nil
}

func (m *memSignupStore) Find(_ context.Context, id string) (signup.Signup, error) {
	s, ok := m.signups[id]
	if !ok {
		return signup.Signup{}, signup.ErrNotFound
	}
	return s, nil
}

func (m *memSignupStore) UpdateStatus(_ context.Context, kind activity.Kind, id string, status signup.Status) error {
	s, ok := m.signups[id]
	if !ok || s.Kind != kind {
		return signup.ErrNotFound
	}
	s.Status = status
	m.signups[id] = s
	return nil
}

func (m *memSignupStore) Delete(_ context.Context, kind activity.Kind, id string) error {
	s, ok := m.signups[id]
	if !ok || s.Kind != kind {
		return signup.ErrNotFound
	}
	delete(m.signups, id)
	return nil
}

// --- audit, metrics, mail ---

type memAudit struct {
	events []audit.Event
}

func (m *memAudit) Save(_ context.Context, e audit.Event) error {
	m.events = append(m.events, e)
	return nil
}

type countingMetrics struct {
	created   []string
	decisions []string
}

func (m *countingMetrics) SignupCreated(kind, status string) {
	m.created = append(m.created, kind+"/"+status)
}

func (m *countingMetrics) Decision(d string) {
	m.decisions = append(m.decisions, d)
}

type failingSender struct{}

func (failingSender) Send(context.Context, emailPkg.SendRequest) (emailPkg.SendResult, error) {
	return emailPkg.SendResult{}, errors.New("provider unavailable")
}

// --- objects ---

type memObjects struct {
	mu      sync.Mutex
	objects map[string]string
	err     error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string]string{}}
}

func (m *memObjects) Put(_ context.Context, name string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = string(data)
	return "/uploads/" + name, nil
}

type stubFetcher struct {
	bodies map[string]string
}

func (f stubFetcher) Fetch(_ context.Context, url string) (io.ReadCloser, string, error) {
	body, ok := f.bodies[url]
	if !ok {
		return nil, "", errors.New("404")
	}
	return io.NopCloser(strings.NewReader(body)), ".jpg", nil
}
