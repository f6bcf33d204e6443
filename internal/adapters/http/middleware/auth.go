package middleware

import (
	"context"
	"net/http"
	"time"

	"signups/internal/adapters/auth"
	"signups/internal/application/authstate"
	"signups/internal/domain/authsession"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const identityContextKey contextKey = "identity"

// SessionCookieName holds the signed session token.
const SessionCookieName = "signups_session"

// TokenValidator checks a signed cookie value.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// StateProvider returns the auth state store for a live session token.
type StateProvider interface {
	Get(ctx context.Context, token string) *authstate.Store
}

// Identity is the authenticated caller. Token is the server-side session
// token carried in the cookie's JWT ID.
type Identity struct {
	Token   string
	Session authsession.Session
	Store   *authstate.Store
}

// State returns a fresh snapshot of the caller's auth state.
func (id Identity) State() authstate.State {
	if id.Store == nil {
		s := id.Session
		return authstate.State{Session: &s}
	}
	return id.Store.State()
}

// Authenticate returns middleware that resolves the session cookie to an
// Identity. It does NOT block unauthenticated requests; use Guard for that.
func Authenticate(tokens TokenValidator, states StateProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.Validate(cookie.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			st := states.Get(r.Context(), claims.ID)
			if st == nil {
				next.ServeHTTP(w, r)
				return
			}
			sess := st.GetSession()
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}
			id := Identity{Token: claims.ID, Session: *sess, Store: st}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityContextKey, id)))
		})
	}
}

// GetIdentity extracts the caller from the request context.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// ContextWithIdentity returns a context with the given identity set.
// Intended for use in tests.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// SetSessionCookie sets the session cookie on the response. The cookie
// expires with the session it points at.
func SetSessionCookie(w http.ResponseWriter, value string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		Expires:  expires,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
