package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"signups/internal/adapters/auth"
	"signups/internal/adapters/email"
	"signups/internal/adapters/http/middleware"
	"signups/internal/adapters/http/perf"
	"signups/internal/adapters/objectstore"
	accountStore "signups/internal/adapters/storage/account"
	activityStore "signups/internal/adapters/storage/activity"
	auditStore "signups/internal/adapters/storage/audit"
	profileStore "signups/internal/adapters/storage/profile"
	reportStore "signups/internal/adapters/storage/report"
	signupStore "signups/internal/adapters/storage/signup"
	"signups/internal/adapters/storage/storagetest"
	"signups/internal/application/authstate"
	"signups/internal/domain/account"
	"signups/internal/domain/activity"
	"signups/internal/domain/profile"
)

// Thursday; early-week sessions are closed.
var testNow = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

const shellHTML = `<!doctype html><div id="app"></div>`

type testEnv struct {
	handler  http.Handler
	db       *sql.DB
	mailer   *email.NoopSender
	sessions *auth.SessionStore
	tokens   *auth.JWTManager
	registry *authstate.Registry
}

// newTestEnv wires the full mux over a migrated in-memory database seeded
// with two events, two sessions, a driver, a member and an admin.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := storagetest.OpenDB(t)

	prev := timeNow
	timeNow = func() time.Time { return testNow }
	t.Cleanup(func() { timeNow = prev })

	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte(shellHTML), 0o644); err != nil {
		t.Fatal(err)
	}
	objects, err := objectstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	profiles := profileStore.NewSQLiteStore(db)
	sessions := auth.NewSessionStore(time.Hour)
	registry := authstate.NewRegistry(sessions, profiles)
	t.Cleanup(registry.CloseAll)

	reg := prometheus.NewRegistry()
	metrics := perf.NewMetrics(reg)
	env := &testEnv{
		db:       db,
		mailer:   email.NewNoopSender(),
		sessions: sessions,
		tokens:   auth.NewJWTManager("test-secret"),
		registry: registry,
	}
	h, err := NewMux(Options{
		StaticDir:          staticDir,
		CSRFKey:            strings.Repeat("ab", 32),
		RateLimitPerSecond: 1000,
		Gatherer:           reg,
	}, &Stores{
		AccountStore:  accountStore.NewSQLiteStore(db),
		ProfileStore:  profiles,
		ActivityStore: activityStore.NewSQLiteStore(db),
		SignupStore:   signupStore.NewRouter(db),
		ReportStore:   reportStore.NewSQLiteStore(db),
		AuditStore:    auditStore.NewSQLiteStore(db),
	}, &Services{
		Sessions: sessions,
		Tokens:   env.tokens,
		Registry: registry,
		Mailer:   env.mailer,
		Objects:  objects,
		Metrics:  metrics,
		BaseURL:  "http://test",
	}, perf.NewCollector(100, metrics))
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}
	env.handler = h

	storagetest.SeedMember(t, db, "drv", "Dana Driver", "Driver", 4, false)
	storagetest.SeedMember(t, db, "mem", "Milo Member", "Member", 0, false)
	storagetest.SeedMember(t, db, "adm", "Ada Admin", "Member", 0, true)

	ctx := context.Background()
	for _, a := range []activity.Activity{
		{ID: "regatta", Kind: activity.KindEvent, Name: "Regatta", Date: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), RequiresApproval: true},
		{ID: "bbq", Kind: activity.KindEvent, Name: "BBQ", Date: time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)},
		{ID: "training", Kind: activity.KindSession, Name: "Training", Weekday: time.Saturday},
		{ID: "race", Kind: activity.KindSession, Name: "Race Training", Weekday: time.Sunday, EarlyWeekSignupsOnly: true},
	} {
		a.CreatedAt = testNow
		if err := stores.ActivityStore.Save(ctx, a); err != nil {
			t.Fatalf("seed activity %s: %v", a.ID, err)
		}
	}
	return env
}

// signIn opens a session for accountID and returns its cookie.
func (e *testEnv) signIn(t *testing.T, accountID string, recovery bool) *http.Cookie {
	t.Helper()
	sess, err := e.sessions.Create(accountID, accountID+"@club.org.nz", recovery)
	if err != nil {
		t.Fatal(err)
	}
	signed, err := e.tokens.Generate(sess)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: middleware.SessionCookieName, Value: signed}
}

// do sends a JSON request through the full middleware chain.
func (e *testEnv) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response (status %d)", rr.Code)
	return nil
}

var linkToken = regexp.MustCompile(`token=([0-9a-f-]+)`)

func lastLinkToken(t *testing.T, mailer *email.NoopSender) string {
	t.Helper()
	sent := mailer.Sent()
	if len(sent) == 0 {
		t.Fatal("no email sent")
	}
	m := linkToken.FindStringSubmatch(sent[len(sent)-1].HTML)
	if m == nil {
		t.Fatalf("no token link in %q", sent[len(sent)-1].HTML)
	}
	return m[1]
}

// TestSignUpConfirmAndSetup walks a new member from sign-up to the dashboard.
func TestSignUpConfirmAndSetup(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/auth/signup", `{"email":"New@Club.org.nz","password":"longenough"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rr.Code, rr.Body)
	}
	token := lastLinkToken(t, env.mailer)

	rr = env.do(t, "POST", "/api/auth/signin", `{"email":"new@club.org.nz","password":"longenough"}`, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("signin before confirm = %d, want 403", rr.Code)
	}

	rr = env.do(t, "GET", "/auth/confirm?token="+token, "", nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/setup" {
		t.Fatalf("confirm = %d %q, want 303 /setup", rr.Code, rr.Header().Get("Location"))
	}
	cookie := sessionCookie(t, rr)

	rr = env.do(t, "GET", "/api/activities", "", cookie)
	if rr.Code != http.StatusForbidden || decode(t, rr)["redirect"] != "/setup" {
		t.Errorf("activities before setup = %d %s, want 403 redirect /setup", rr.Code, rr.Body)
	}

	rr = env.do(t, "POST", "/api/profile", `{"name":"Nia New","role":"Member","student_number":"2101","car_spaces":0}`, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("setup = %d %s", rr.Code, rr.Body)
	}

	rr = env.do(t, "GET", "/api/activities", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("activities after setup = %d %s", rr.Code, rr.Body)
	}
	var tiles struct{ Tiles []struct{ ID string } }
	if err := json.Unmarshal(rr.Body.Bytes(), &tiles); err != nil {
		t.Fatal(err)
	}
	if len(tiles.Tiles) != 4 {
		t.Errorf("tiles = %+v, want 4", tiles.Tiles)
	}

	rr = env.do(t, "GET", "/auth/confirm?token="+token, "", nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != AccessDeniedPath {
		t.Errorf("reused confirm link = %d %q, want access denied", rr.Code, rr.Header().Get("Location"))
	}

	rr = env.do(t, "POST", "/api/auth/signin", `{"email":"new@club.org.nz","password":"longenough"}`, nil)
	if rr.Code != http.StatusOK || decode(t, rr)["redirect"] != "/dashboard" {
		t.Errorf("signin = %d %s, want redirect /dashboard", rr.Code, rr.Body)
	}
}

// TestRequestValidation verifies field errors are keyed by JSON name.
func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	member := env.signIn(t, "mem", false)
	admin := env.signIn(t, "adm", false)
	tests := []struct {
		name   string
		path   string
		body   string
		cookie *http.Cookie
		fields []string
	}{
		{"bad email and short password", "/api/auth/signup", `{"email":"nope","password":"short"}`, nil, []string{"email", "password"}},
		{"missing password", "/api/auth/signin", `{"email":"a@b.co"}`, nil, []string{"password"}},
		{"forgot without email", "/api/auth/forgot", `{}`, nil, []string{"email"}},
		{"long profile name", "/api/profile",
			`{"name":"` + strings.Repeat("n", 101) + `","role":"Member","student_number":"2101","car_spaces":0}`, member, []string{"name"}},
		{"long student number", "/api/profile",
			`{"name":"Mo","role":"Member","student_number":"` + strings.Repeat("1", 21) + `","car_spaces":0}`, member, []string{"student_number"}},
		{"long description", "/api/admin/activities",
			`{"kind":"event","name":"Talk","date":"2025-06-01","description":"` + strings.Repeat("d", 5001) + `"}`, admin, []string{"description"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", tt.path, tt.body, tt.cookie)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			fields, _ := decode(t, rr)["fields"].(map[string]any)
			for _, f := range tt.fields {
				if _, ok := fields[f]; !ok {
					t.Errorf("fields = %v, missing %q", fields, f)
				}
			}
		})
	}

	rr := env.do(t, "POST", "/api/auth/signin", `{"email":"a@b.co","password":"x","admin":true}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", rr.Code)
	}

	// Limits count characters, so a name at the limit in a multi-byte script is accepted.
	body := `{"name":"` + strings.Repeat("é", 100) + `","role":"Member","student_number":"2101","car_spaces":0}`
	if rr := env.do(t, "POST", "/api/profile", body, member); rr.Code != http.StatusOK {
		t.Errorf("100-character name status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
}

// TestStatusFor_LengthErrors verifies domain length errors answer 400.
func TestStatusFor_LengthErrors(t *testing.T) {
	for _, err := range []error{
		account.ErrEmailTooLong,
		profile.ErrNameTooLong,
		profile.ErrStudentNumberLong,
		profile.ErrTooManySpaces,
		activity.ErrNameTooLong,
		activity.ErrLocationTooLong,
		activity.ErrDescriptionLong,
	} {
		if status, ok := statusFor(fmt.Errorf("save: %w", err)); !ok || status != http.StatusBadRequest {
			t.Errorf("statusFor(%v) = %d, %v; want 400", err, status, ok)
		}
	}
}

// TestGuards verifies each access level for API and page routes.
func TestGuards(t *testing.T) {
	env := newTestEnv(t)
	member := env.signIn(t, "mem", false)
	admin := env.signIn(t, "adm", false)
	recovering := env.signIn(t, "drv", true)

	tests := []struct {
		name     string
		path     string
		cookie   *http.Cookie
		status   int
		location string
	}{
		{"anonymous api", "/api/activities", nil, http.StatusUnauthorized, ""},
		{"anonymous page", "/dashboard", nil, http.StatusSeeOther, "/"},
		{"member api", "/api/activities", member, http.StatusOK, ""},
		{"member page", "/mysignups", member, http.StatusOK, ""},
		{"member on admin api", "/api/admin/review", member, http.StatusForbidden, ""},
		{"member on admin page", "/admin", member, http.StatusSeeOther, "/dashboard"},
		{"admin api", "/api/admin/review", admin, http.StatusOK, ""},
		{"admin page", "/admin", admin, http.StatusOK, ""},
		{"recovery on member api", "/api/activities", recovering, http.StatusForbidden, ""},
		{"recovery on member page", "/dashboard", recovering, http.StatusSeeOther, "/update-password"},
		{"recovery on setup", "/setup", recovering, http.StatusSeeOther, "/update-password"},
		{"recovery on password page", "/update-password", recovering, http.StatusOK, ""},
		{"tampered cookie", "/api/activities", &http.Cookie{Name: middleware.SessionCookieName, Value: "x.y.z"}, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "GET", tt.path, "", tt.cookie)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.status, rr.Body)
			}
			if tt.location != "" && rr.Header().Get("Location") != tt.location {
				t.Errorf("Location = %q, want %q", rr.Header().Get("Location"), tt.location)
			}
		})
	}
}

// TestSessionEndpoint verifies the auth snapshot for anonymous and signed-in callers.
func TestSessionEndpoint(t *testing.T) {
	env := newTestEnv(t)

	got := decode(t, env.do(t, "GET", "/api/session", "", nil))
	if got["authenticated"] != false || got["guard"] != "unauthenticated" {
		t.Errorf("anonymous session = %v", got)
	}

	got = decode(t, env.do(t, "GET", "/api/session", "", env.signIn(t, "adm", false)))
	if got["authenticated"] != true || got["guard"] != "authorized" || got["is_admin"] != true {
		t.Errorf("admin session = %v", got)
	}
	if p, _ := got["profile"].(map[string]any); p["name"] != "Ada Admin" {
		t.Errorf("profile = %v", got["profile"])
	}
}

// TestSignupLifecycle covers request, repeat, closed session, listing and cancel.
func TestSignupLifecycle(t *testing.T) {
	env := newTestEnv(t)
	driver := env.signIn(t, "drv", false)
	member := env.signIn(t, "mem", false)

	rr := env.do(t, "POST", "/api/activities/regatta/signup", `{"answer":true}`, driver)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup = %d %s", rr.Code, rr.Body)
	}
	first := decode(t, rr)
	if first["status"] != "WaitingList" || !strings.Contains(first["message"].(string), "waitlist") {
		t.Errorf("regatta signup = %v", first)
	}

	rr = env.do(t, "POST", "/api/activities/regatta/signup", `{"answer":true}`, driver)
	if rr.Code != http.StatusOK || decode(t, rr)["existed"] != true {
		t.Errorf("repeat signup = %d %s, want 200 existed", rr.Code, rr.Body)
	}

	rr = env.do(t, "POST", "/api/activities/training/signup", `{"answer":false}`, driver)
	if rr.Code != http.StatusCreated || decode(t, rr)["status"] != "Confirmed" {
		t.Errorf("session signup = %d %s", rr.Code, rr.Body)
	}

	rr = env.do(t, "POST", "/api/activities/race/signup", `{"answer":false}`, driver)
	if rr.Code != http.StatusConflict {
		t.Errorf("early-week session on Thursday = %d, want 409", rr.Code)
	}

	rr = env.do(t, "POST", "/api/activities/nope/signup", `{"answer":false}`, driver)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown activity = %d, want 404", rr.Code)
	}

	rr = env.do(t, "GET", "/api/my-signups", "", driver)
	var mine struct {
		Rows []struct {
			SignupID   string
			Kind       string
			ActivityID string
			CanDrive   bool
		}
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &mine); err != nil {
		t.Fatal(err)
	}
	if len(mine.Rows) != 2 {
		t.Fatalf("my signups = %+v, want 2", mine.Rows)
	}
	var eventSignup string
	for _, row := range mine.Rows {
		if row.Kind == "event" {
			eventSignup = row.SignupID
			if !row.CanDrive {
				t.Errorf("driver answering yes should be driving: %+v", row)
			}
		}
	}

	if rr := env.do(t, "DELETE", "/api/my-signups/event/"+eventSignup, "", member); rr.Code != http.StatusForbidden {
		t.Errorf("cancel by another member = %d, want 403", rr.Code)
	}
	if rr := env.do(t, "DELETE", "/api/my-signups/session/"+eventSignup, "", driver); rr.Code != http.StatusNotFound {
		t.Errorf("cancel against the wrong table = %d, want 404", rr.Code)
	}
	if rr := env.do(t, "DELETE", "/api/my-signups/party/"+eventSignup, "", driver); rr.Code != http.StatusBadRequest {
		t.Errorf("cancel with bad kind = %d, want 400", rr.Code)
	}
	if rr := env.do(t, "DELETE", "/api/my-signups/event/"+eventSignup, "", driver); rr.Code != http.StatusNoContent {
		t.Fatalf("cancel = %d %s", rr.Code, rr.Body)
	}

	rr = env.do(t, "POST", "/api/activities/regatta/signup", `{"answer":false}`, driver)
	if rr.Code != http.StatusCreated {
		t.Errorf("signup again after cancel = %d, want 201", rr.Code)
	}
}

// TestAdminDecisionExportAndAudit covers the admin panel end to end.
func TestAdminDecisionExportAndAudit(t *testing.T) {
	env := newTestEnv(t)
	member := env.signIn(t, "mem", false)
	admin := env.signIn(t, "adm", false)

	rr := env.do(t, "POST", "/api/activities/regatta/signup", `{"answer":true}`, member)
	signupID, _ := decode(t, rr)["signup_id"].(string)
	if signupID == "" {
		t.Fatalf("signup = %d %s", rr.Code, rr.Body)
	}

	rr = env.do(t, "GET", "/api/admin/review", "", admin)
	var review struct {
		Upcoming []struct {
			EventID                string
			PassengersNeedingLifts int
			Members                []struct{ Actionable bool }
		}
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &review); err != nil {
		t.Fatal(err)
	}
	if len(review.Upcoming) != 2 || review.Upcoming[1].EventID != "regatta" {
		t.Fatalf("review = %+v", review.Upcoming)
	}
	if r := review.Upcoming[1]; r.PassengersNeedingLifts != 1 || len(r.Members) != 1 || !r.Members[0].Actionable {
		t.Errorf("regatta review = %+v", r)
	}

	if rr := env.do(t, "POST", "/api/admin/signups/"+signupID+"/decision", `{"decision":"maybe"}`, admin); rr.Code != http.StatusBadRequest {
		t.Errorf("bad decision = %d, want 400", rr.Code)
	}
	before := len(env.mailer.Sent())
	rr = env.do(t, "POST", "/api/admin/signups/"+signupID+"/decision", `{"decision":"approve"}`, admin)
	if rr.Code != http.StatusOK || decode(t, rr)["status"] != "Confirmed" {
		t.Fatalf("approve = %d %s", rr.Code, rr.Body)
	}
	if sent := env.mailer.Sent(); len(sent) != before+1 || sent[len(sent)-1].To[0] != "mem@club.org.nz" {
		t.Errorf("decision email not sent to the member: %+v", sent)
	}
	if rr := env.do(t, "POST", "/api/admin/signups/"+signupID+"/decision", `{"decision":"deny"}`, admin); rr.Code != http.StatusConflict {
		t.Errorf("second decision = %d, want 409", rr.Code)
	}

	rr = env.do(t, "GET", "/api/admin/events/regatta/export.csv", "", admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("export = %d %s", rr.Code, rr.Body)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, ".csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(rr.Body.String(), "Milo Member") {
		t.Errorf("csv missing member: %q", rr.Body.String())
	}
	if rr := env.do(t, "GET", "/api/admin/events/bbq/export.csv", "", admin); rr.Code != http.StatusNotFound {
		t.Errorf("export of empty event = %d, want 404", rr.Code)
	}

	rr = env.do(t, "GET", "/api/admin/audit?category=signup", "", admin)
	var events []struct{ Action string }
	if err := json.Unmarshal(rr.Body.Bytes(), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("audit events = %+v, want approve and export", events)
	}
}

// TestDraftFromRequest verifies request fields reach the draft and a
// malformed date is rejected rather than zeroed.
func TestDraftFromRequest(t *testing.T) {
	weekday := int(time.Saturday)
	d, err := draftFromRequest(activityRequest{Kind: "session", Name: "Training", Weekday: &weekday, Location: "Shed"})
	if err != nil {
		t.Fatalf("draftFromRequest: %v", err)
	}
	if d.Kind != activity.KindSession || d.Weekday != time.Saturday || d.Location != "Shed" || !d.Date.IsZero() {
		t.Errorf("draft = %+v", d)
	}

	d, err = draftFromRequest(activityRequest{Kind: "event", Name: "Regatta", Date: "2025-05-10"})
	if err != nil || !d.Date.Equal(time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("event draft = %+v, %v", d, err)
	}

	for _, bad := range []string{"10/05/2025", "2025-13-01", "tomorrow"} {
		if _, err := draftFromRequest(activityRequest{Kind: "event", Name: "Regatta", Date: bad}); !errors.Is(err, errInvalidDate) {
			t.Errorf("draftFromRequest(%q) error = %v, want errInvalidDate", bad, err)
		}
	}
}

// TestCreateActivity verifies creation, field errors and draft echo.
func TestCreateActivity(t *testing.T) {
	env := newTestEnv(t)
	admin := env.signIn(t, "adm", false)

	rr := env.do(t, "POST", "/api/admin/activities", `{"kind":"event","name":"Open Day","date":"2025-06-01"}`, admin)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rr.Code, rr.Body)
	}
	if got := decode(t, rr); got["image_url"] != "/img/default-activity.jpg" {
		t.Errorf("image_url = %v, want the default image", got["image_url"])
	}

	rr = env.do(t, "POST", "/api/admin/activities", `{"kind":"event","name":"No Date"}`, admin)
	if fields, _ := decode(t, rr)["fields"].(map[string]any); rr.Code != http.StatusBadRequest || fields["date"] == nil {
		t.Errorf("missing date = %d %s", rr.Code, rr.Body)
	}

	rr = env.do(t, "POST", "/api/admin/activities", `{"kind":"session","name":"Keelboats","weekday":3,"requires_approval":true}`, admin)
	got := decode(t, rr)
	draft, _ := got["draft"].(map[string]any)
	if rr.Code != http.StatusBadRequest || draft["name"] != "Keelboats" {
		t.Errorf("session with approval = %d %v, want 400 with draft", rr.Code, got)
	}

	if rr := env.do(t, "POST", "/api/admin/activities", `{"kind":"event","name":"X","date":"2025-06-01"}`, env.signIn(t, "mem", false)); rr.Code != http.StatusForbidden {
		t.Errorf("member create = %d, want 403", rr.Code)
	}
}

// TestAuthRecoveryAndSignOut covers forgot password, recovery, update and sign out.
func TestAuthRecoveryAndSignOut(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, "POST", "/api/auth/forgot", `{"email":"ghost@club.org.nz"}`, nil); rr.Code != http.StatusOK || len(env.mailer.Sent()) != 0 {
		t.Errorf("unknown email = %d, sent %d", rr.Code, len(env.mailer.Sent()))
	}
	if rr := env.do(t, "POST", "/api/auth/forgot", `{"email":"mem@club.org.nz"}`, nil); rr.Code != http.StatusOK {
		t.Fatalf("forgot = %d %s", rr.Code, rr.Body)
	}

	rr := env.do(t, "GET", "/auth/recover?token="+lastLinkToken(t, env.mailer), "", nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/update-password" {
		t.Fatalf("recover = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	recovery := sessionCookie(t, rr)

	if rr := env.do(t, "POST", "/api/auth/password", `{"password":"short"}`, recovery); rr.Code != http.StatusBadRequest {
		t.Errorf("short password = %d, want 400", rr.Code)
	}
	rr = env.do(t, "POST", "/api/auth/password", `{"password":"brand-new-pass"}`, recovery)
	if rr.Code != http.StatusOK {
		t.Fatalf("update password = %d %s", rr.Code, rr.Body)
	}
	cookie := sessionCookie(t, rr)
	if rr := env.do(t, "GET", "/api/activities", "", cookie); rr.Code != http.StatusOK {
		t.Errorf("activities after update = %d, want 200", rr.Code)
	}

	rr = env.do(t, "POST", "/api/auth/signin", `{"email":"mem@club.org.nz","password":"brand-new-pass"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("signin with new password = %d %s", rr.Code, rr.Body)
	}
	fresh := sessionCookie(t, rr)

	if rr := env.do(t, "POST", "/api/auth/signout", "", fresh); rr.Code != http.StatusOK {
		t.Fatalf("signout = %d", rr.Code)
	}
	if rr := env.do(t, "GET", "/api/activities", "", fresh); rr.Code != http.StatusUnauthorized {
		t.Errorf("activities after signout = %d, want 401", rr.Code)
	}
	if rr := env.do(t, "GET", "/auth/recover?token=not-a-token", "", nil); rr.Header().Get("Location") != AccessDeniedPath {
		t.Errorf("bad recovery link = %q, want access denied", rr.Header().Get("Location"))
	}
}

func multipartBody(t *testing.T, filename, content, activityID string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	if activityID != "" {
		mw.WriteField("activity_id", activityID)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

// TestUploadImage calls the handler directly; form posts through the mux
// need a CSRF token.
func TestUploadImage(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartBody(t, "sunset.jpg", "jpeg bytes", "bbq")

	req := httptest.NewRequest("POST", "/api/admin/images", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(env.signIn(t, "adm", false))
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("form post without CSRF token = %d, want 403", rr.Code)
	}

	sess, err := env.sessions.Create("adm", "adm@club.org.nz", false)
	if err != nil {
		t.Fatal(err)
	}
	id := middleware.Identity{Token: sess.Token, Session: sess, Store: env.registry.Get(context.Background(), sess.Token)}
	body, contentType = multipartBody(t, "sunset.jpg", "jpeg bytes", "bbq")
	req = httptest.NewRequest("POST", "/api/admin/images", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middleware.ContextWithIdentity(req.Context(), id))
	rr = httptest.NewRecorder()
	handleUploadImage(rr, req)
	if rr.Code != http.StatusCreated || decode(t, rr)["path"] != "/uploads/sunset.jpg" {
		t.Fatalf("upload = %d %s", rr.Code, rr.Body)
	}

	a, err := stores.ActivityStore.GetByID(context.Background(), "bbq")
	if err != nil || a.Image.URL != "/uploads/sunset.jpg" {
		t.Errorf("activity image = %q, %v", a.Image.URL, err)
	}

	rr = env.do(t, "GET", "/uploads/sunset.jpg", "", nil)
	if rr.Code != http.StatusOK || rr.Body.String() != "jpeg bytes" {
		t.Errorf("serve upload = %d %q", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, "GET", "/uploads/missing.jpg", "", nil); rr.Code != http.StatusNotFound {
		t.Errorf("missing upload = %d, want 404", rr.Code)
	}
}

// TestOpsEndpoints verifies health, metrics and the app shell.
func TestOpsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, "GET", "/healthz", "", nil); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, "GET", "/", "", nil); !strings.Contains(rr.Body.String(), `id="app"`) {
		t.Errorf("shell = %d %q", rr.Code, rr.Body.String())
	}
	rr := env.do(t, "GET", "/metrics", "", nil)
	if !strings.Contains(rr.Body.String(), "signups_http_requests_total") {
		t.Errorf("metrics missing request counter:\n%s", rr.Body.String())
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("security headers missing")
	}
}
