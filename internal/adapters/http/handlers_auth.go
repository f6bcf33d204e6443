package web

import (
	"log/slog"
	"net/http"

	"signups/internal/adapters/http/middleware"
	"signups/internal/application/orchestrators"
	"signups/internal/application/routeguard"
	"signups/internal/domain/authsession"
)

// AccessDeniedPath is shown when an emailed link cannot be used.
const AccessDeniedPath = "/access-denied"

func tokenFlowDeps() orchestrators.TokenFlowDeps {
	return orchestrators.TokenFlowDeps{
		AccountStore: stores.AccountStore,
		Sessions:     services.Sessions,
		Mailer:       services.Mailer,
		BaseURL:      services.BaseURL,
		GenerateID:   generateID,
		Now:          timeNow,
	}
}

// issueSession signs s into the session cookie.
func issueSession(w http.ResponseWriter, s authsession.Session) error {
	signed, err := services.Tokens.Generate(s)
	if err != nil {
		return err
	}
	middleware.SetSessionCookie(w, signed, s.ExpiresAt, options.SecureCookies)
	return nil
}

// handleSignUp handles POST /api/auth/signup
// PRE: JSON body with email and password
// POST: Pending account created and confirmation link mailed
func handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	accountID, err := orchestrators.ExecuteSignUp(r.Context(), orchestrators.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
	}, orchestrators.SignUpDeps{
		AccountStore: stores.AccountStore,
		Mailer:       services.Mailer,
		BaseURL:      services.BaseURL,
		GenerateID:   generateID,
		Now:          timeNow,
	})
	if err != nil && accountID == "" {
		writeDomainError(w, err)
		return
	}
	if err != nil {
		// The account exists; the member can ask for a new link.
		slog.Error("confirmation_email_failed", "account_id", accountID, "error", err)
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Check your email for a link to confirm your account.",
	})
}

// handleSignIn handles POST /api/auth/signin
// PRE: JSON body with email and password
// POST: Session cookie set; redirect is /setup until the profile is complete
func handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sess, err := orchestrators.ExecuteSignIn(r.Context(), orchestrators.SignInInput{
		Email:    req.Email,
		Password: req.Password,
	}, orchestrators.SignInDeps{
		AccountStore: stores.AccountStore,
		Sessions:     services.Sessions,
		Now:          timeNow,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := issueSession(w, sess); err != nil {
		internalError(w, err)
		return
	}

	redirect := routeguard.DashboardPath
	if st := services.Registry.Get(r.Context(), sess.Token); st != nil {
		if d := routeguard.Evaluate(st.State(), routeguard.Requirement{}); d.Redirect != "" {
			redirect = d.Redirect
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": redirect})
}

// handleForgotPassword handles POST /api/auth/forgot
// POST: Always answers 200 for a well-formed email, known or not
func handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := orchestrators.ExecuteRequestPasswordReset(r.Context(), req.Email, tokenFlowDeps()); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If an account exists for that email, a reset link is on its way.",
	})
}

// handleConfirmLink handles GET /auth/confirm?token=
// POST: Account active, member signed in and sent to account setup
func handleConfirmLink(w http.ResponseWriter, r *http.Request) {
	sess, err := orchestrators.ExecuteConfirmAccount(r.Context(), r.URL.Query().Get("token"), tokenFlowDeps())
	if err != nil {
		linkFailed(w, r, "confirm", err)
		return
	}
	if err := issueSession(w, sess); err != nil {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, routeguard.SetupPath, http.StatusSeeOther)
}

// handleRecoverLink handles GET /auth/recover?token=
// POST: Recovery session cookie set; only /update-password is reachable
func handleRecoverLink(w http.ResponseWriter, r *http.Request) {
	sess, err := orchestrators.ExecuteRecoverSession(r.Context(), r.URL.Query().Get("token"), tokenFlowDeps())
	if err != nil {
		linkFailed(w, r, "recover", err)
		return
	}
	if err := issueSession(w, sess); err != nil {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, middleware.UpdatePasswordPath, http.StatusSeeOther)
}

func linkFailed(w http.ResponseWriter, r *http.Request, link string, err error) {
	if _, ok := statusFor(err); !ok {
		internalError(w, err)
		return
	}
	slog.Info("auth_event", "event", "link_rejected", "link", link, "reason", err.Error())
	http.Redirect(w, r, AccessDeniedPath, http.StatusSeeOther)
}

// handleSignOut handles POST /api/auth/signout
// POST: Session deleted, cookie cleared
func handleSignOut(w http.ResponseWriter, r *http.Request) {
	if id, ok := middleware.GetIdentity(r.Context()); ok {
		services.Sessions.Delete(id.Token)
		slog.Info("auth_event", "event", "signed_out", "account_id", id.Session.AccountID)
	}
	middleware.ClearSessionCookie(w, options.SecureCookies)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": routeguard.SignInPath})
}

// handleUpdatePassword handles POST /api/auth/password
// PRE: Signed in, possibly with a recovery session
// POST: Password changed; the caller's session leaves recovery mode
func handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	var req passwordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := orchestrators.ExecuteUpdatePassword(r.Context(), orchestrators.UpdatePasswordInput{
		AccountID:    id.Session.AccountID,
		SessionToken: id.Token,
		NewPassword:  req.Password,
	}, orchestrators.UpdatePasswordDeps{
		AccountStore: stores.AccountStore,
		Sessions:     services.Sessions,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The session's expiry moved when recovery ended; reissue the cookie.
	if sess, ok := services.Sessions.Get(id.Token); ok {
		if err := issueSession(w, sess); err != nil {
			internalError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": routeguard.DashboardPath})
}
