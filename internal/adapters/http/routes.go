package web

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"signups/internal/adapters/http/middleware"
	"signups/internal/adapters/objectstore"
	"signups/internal/application/routeguard"
)

var (
	memberOnly = routeguard.Requirement{}
	adminOnly  = routeguard.Requirement{Admin: true}
)

func api(req routeguard.Requirement, h http.HandlerFunc) http.Handler {
	return middleware.Guard(req, middleware.API)(h)
}

func page(req routeguard.Requirement) http.Handler {
	return middleware.Guard(req, middleware.Page)(http.HandlerFunc(serveShell))
}

func withSession(allowRecovery bool, h http.HandlerFunc) http.Handler {
	return middleware.RequireSession(middleware.API, allowRecovery)(h)
}

// registerRoutes adds every route to mux. Member routes need a complete
// profile; admin routes also need the admin flag.
func registerRoutes(mux *http.ServeMux) {
	// Auth service
	mux.HandleFunc("POST /api/auth/signup", handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", handleSignIn)
	mux.HandleFunc("POST /api/auth/forgot", handleForgotPassword)
	mux.HandleFunc("GET /auth/confirm", handleConfirmLink)
	mux.HandleFunc("GET /auth/recover", handleRecoverLink)
	mux.Handle("POST /api/auth/signout", withSession(true, handleSignOut))
	mux.Handle("POST /api/auth/password", withSession(true, handleUpdatePassword))

	// Session and account setup
	mux.HandleFunc("GET /api/session", handleSession)
	mux.Handle("GET /api/profile", withSession(false, handleGetProfile))
	mux.Handle("POST /api/profile", withSession(false, handleSetupProfile))

	// Member
	mux.Handle("GET /api/activities", api(memberOnly, handleListActivities))
	mux.Handle("GET /api/activities/{id}", api(memberOnly, handleGetActivity))
	mux.Handle("POST /api/activities/{id}/signup", api(memberOnly, handleRequestSignup))
	mux.Handle("GET /api/my-signups", api(memberOnly, handleMySignups))
	mux.Handle("DELETE /api/my-signups/{kind}/{id}", api(memberOnly, handleCancelSignup))

	// Admin
	mux.Handle("GET /api/admin/review", api(adminOnly, handleAdminReview))
	mux.Handle("POST /api/admin/signups/{id}/decision", api(adminOnly, handleDecideSignup))
	mux.Handle("POST /api/admin/activities", api(adminOnly, handleCreateActivity))
	mux.Handle("POST /api/admin/images", api(adminOnly, handleUploadImage))
	mux.Handle("GET /api/admin/events/{id}/export.csv", api(adminOnly, handleExportSignups))
	mux.Handle("GET /api/admin/audit", api(adminOnly, handleAdminAuditTrail))
	mux.Handle("GET /api/admin/perf", api(adminOnly, handlePerfSnapshot))

	// Pages
	mux.HandleFunc("GET /{$}", serveShell)
	mux.HandleFunc("GET /access-denied", serveShell)
	mux.Handle("GET /setup", middleware.RequireSession(middleware.Page, false)(http.HandlerFunc(serveShell)))
	mux.Handle("GET /update-password", middleware.RequireSession(middleware.Page, true)(http.HandlerFunc(serveShell)))
	mux.Handle("GET /dashboard", page(memberOnly))
	mux.Handle("GET /mysignups", page(memberOnly))
	mux.Handle("GET /signup/{id}", page(memberOnly))
	mux.Handle("GET /admin", page(adminOnly))

	// Assets and ops
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(options.StaticDir))))
	mux.HandleFunc("GET /uploads/{name}", handleServeUpload)
	mux.HandleFunc("GET /healthz", handleHealthz)
}

// serveShell serves the single-page app shell.
func serveShell(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(options.StaticDir, "index.html"))
}

// handleServeUpload handles GET /uploads/{name}
func handleServeUpload(w http.ResponseWriter, r *http.Request) {
	rc, err := services.Objects.Open(r.PathValue("name"))
	if errors.Is(err, objectstore.ErrNotFound) || errors.Is(err, objectstore.ErrInvalidName) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(filepath.Ext(r.PathValue("name"))); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	io.Copy(w, rc)
}

// handleHealthz handles GET /healthz
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
