package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"signups/internal/adapters/objectstore"
	"signups/internal/application/directory"
	"signups/internal/application/orchestrators"
	"signups/internal/application/routeguard"
	"signups/internal/domain/account"
	"signups/internal/domain/activity"
	"signups/internal/domain/export"
	"signups/internal/domain/profile"
	"signups/internal/domain/signup"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorResponse maps a domain error to a status. Message replaces the
// error text when set.
type errorResponse struct {
	target   error
	status   int
	message  string
	redirect string
}

var errorResponses = []errorResponse{
	{target: account.ErrInvalidEmail, status: http.StatusBadRequest},
	{target: account.ErrEmptyEmail, status: http.StatusBadRequest},
	{target: account.ErrEmailTooLong, status: http.StatusBadRequest},
	{target: account.ErrEmptyPassword, status: http.StatusBadRequest},
	{target: account.ErrPasswordTooShort, status: http.StatusBadRequest},
	{target: account.ErrTokenExpired, status: http.StatusBadRequest},
	{target: account.ErrTokenInvalid, status: http.StatusBadRequest},
	{target: orchestrators.ErrEmailAlreadyExists, status: http.StatusConflict},
	{target: orchestrators.ErrInvalidCredentials, status: http.StatusUnauthorized},
	{target: orchestrators.ErrAccountLocked, status: http.StatusLocked},
	{target: orchestrators.ErrPendingConfirmation, status: http.StatusForbidden},
	{target: orchestrators.ErrRecoverySessionScope, status: http.StatusForbidden},

	{target: profile.ErrEmptyName, status: http.StatusBadRequest},
	{target: profile.ErrInvalidRole, status: http.StatusBadRequest},
	{target: profile.ErrDriverNeedsSpaces, status: http.StatusBadRequest},
	{target: profile.ErrMemberHasSpaces, status: http.StatusBadRequest},
	{target: profile.ErrNameTooLong, status: http.StatusBadRequest},
	{target: profile.ErrStudentNumberLong, status: http.StatusBadRequest},
	{target: profile.ErrTooManySpaces, status: http.StatusBadRequest},
	{target: orchestrators.ErrStudentNumberRequired, status: http.StatusBadRequest},
	{target: profile.ErrNotFound, status: http.StatusNotFound},
	{target: orchestrators.ErrProfileIncomplete, status: http.StatusForbidden, redirect: routeguard.SetupPath},

	{target: signup.ErrAlreadySignedUpThisWeek, status: http.StatusConflict, message: signup.MsgAlreadySignedUpThisWeek},
	{target: signup.ErrInvalidTransition, status: http.StatusConflict},
	{target: signup.ErrInvalidDecision, status: http.StatusBadRequest},
	{target: signup.ErrBothTransportFlags, status: http.StatusBadRequest},
	{target: signup.ErrNotOwner, status: http.StatusForbidden},
	{target: signup.ErrNotFound, status: http.StatusNotFound},

	{target: activity.ErrSignupsNotOpen, status: http.StatusConflict},
	{target: activity.ErrEmptyName, status: http.StatusBadRequest},
	{target: activity.ErrMissingDate, status: http.StatusBadRequest},
	{target: activity.ErrInvalidWeekday, status: http.StatusBadRequest},
	{target: activity.ErrInvalidKind, status: http.StatusBadRequest},
	{target: activity.ErrSessionApproval, status: http.StatusBadRequest},
	{target: activity.ErrNameTooLong, status: http.StatusBadRequest},
	{target: activity.ErrLocationTooLong, status: http.StatusBadRequest},
	{target: activity.ErrDescriptionLong, status: http.StatusBadRequest},
	{target: activity.ErrNotFound, status: http.StatusNotFound},

	{target: orchestrators.ErrAdminRequired, status: http.StatusForbidden},
	{target: directory.ErrNotAdmin, status: http.StatusForbidden},
	{target: objectstore.ErrInvalidName, status: http.StatusBadRequest},
	{target: objectstore.ErrTooLarge, status: http.StatusRequestEntityTooLarge},
	{target: objectstore.ErrNotFound, status: http.StatusNotFound},
	{target: export.ErrNoSignups, status: http.StatusNotFound},
}

// statusFor returns the status mapped to err.
func statusFor(err error) (int, bool) {
	for _, e := range errorResponses {
		if errors.Is(err, e.target) {
			return e.status, true
		}
	}
	return 0, false
}

// writeDomainError answers with the status mapped to err, or a generic 500
// when err is not a known domain error.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, e := range errorResponses {
		if !errors.Is(err, e.target) {
			continue
		}
		msg := e.message
		if msg == "" {
			msg = e.target.Error()
		}
		body := map[string]string{"error": msg}
		if e.redirect != "" {
			body["redirect"] = e.redirect
		}
		writeJSON(w, e.status, body)
		return
	}
	internalError(w, err)
}
