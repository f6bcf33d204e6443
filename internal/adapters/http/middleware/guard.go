package middleware

import (
	"encoding/json"
	"net/http"

	"signups/internal/application/routeguard"
)

// UpdatePasswordPath is the only page a recovery session may open.
const UpdatePasswordPath = "/update-password"

// Mode selects how a guard refuses a request.
type Mode int

const (
	// API answers with a JSON error and status code.
	API Mode = iota
	// Page redirects the browser.
	Page
)

const loadingPage = `<!doctype html><html><head><meta charset="utf-8"><title>Loading</title></head>` +
	`<body><p>Loading...</p></body></html>`

// Guard returns middleware that lets a request through only when the
// caller's auth state satisfies req. The state is evaluated on every
// request.
func Guard(req routeguard.Requirement, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentity(r.Context())
			if ok && id.Session.Recovery {
				refuse(w, r, mode, http.StatusForbidden, "this session can only be used to set a new password", UpdatePasswordPath)
				return
			}

			var d routeguard.Decision
			if ok {
				d = routeguard.Evaluate(id.State(), req)
			} else {
				d = routeguard.Decision{State: routeguard.Unauthenticated, Redirect: routeguard.SignInPath}
			}

			switch {
			case d.Allowed():
				next.ServeHTTP(w, r)
			case d.State == routeguard.Loading:
				w.Header().Set("Retry-After", "1")
				if mode == Page {
					w.Header().Set("Refresh", "1")
					w.Header().Set("Content-Type", "text/html; charset=utf-8")
					w.WriteHeader(http.StatusOK)
					w.Write([]byte(loadingPage))
					return
				}
				writeError(w, http.StatusServiceUnavailable, "session is loading", "")
			case d.State == routeguard.Unauthenticated:
				refuse(w, r, mode, http.StatusUnauthorized, "sign in required", d.Redirect)
			case d.State == routeguard.NeedsSetup:
				refuse(w, r, mode, http.StatusForbidden, "complete your profile first", d.Redirect)
			default:
				refuse(w, r, mode, http.StatusForbidden, "admin access required", d.Redirect)
			}
		})
	}
}

// RequireSession returns middleware that only checks for a live session.
// Recovery sessions pass when allowRecovery is set.
func RequireSession(mode Mode, allowRecovery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentity(r.Context())
			if !ok {
				refuse(w, r, mode, http.StatusUnauthorized, "sign in required", routeguard.SignInPath)
				return
			}
			if id.Session.Recovery && !allowRecovery {
				refuse(w, r, mode, http.StatusForbidden, "this session can only be used to set a new password", UpdatePasswordPath)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func refuse(w http.ResponseWriter, r *http.Request, mode Mode, status int, msg, redirect string) {
	if mode == Page && redirect != "" {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	writeError(w, status, msg, redirect)
}

func writeError(w http.ResponseWriter, status int, msg, redirect string) {
	body := map[string]string{"error": msg}
	if redirect != "" {
		body["redirect"] = redirect
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
