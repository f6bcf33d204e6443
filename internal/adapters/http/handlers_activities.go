package web

import (
	"net/http"

	"signups/internal/adapters/http/middleware"
	"signups/internal/application/orchestrators"
	"signups/internal/application/projections"
	"signups/internal/domain/activity"
)

func tilesDeps() projections.ActivityTilesDeps {
	return projections.ActivityTilesDeps{ActivityStore: stores.ActivityStore, SignupStore: stores.SignupStore}
}

// handleListActivities handles GET /api/activities
// POST: Upcoming activity tiles with the caller's signup state
func handleListActivities(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	result, err := projections.QueryActivityTiles(r.Context(), projections.ActivityTilesQuery{
		UserID: id.Session.AccountID,
		AsOf:   timeNow(),
	}, tilesDeps())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetActivity handles GET /api/activities/{id}
func handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	result, err := projections.QueryActivityTiles(r.Context(), projections.ActivityTilesQuery{
		UserID:     id.Session.AccountID,
		ActivityID: r.PathValue("id"),
		AsOf:       timeNow(),
	}, tilesDeps())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Tiles[0])
}

// handleRequestSignup handles POST /api/activities/{id}/signup
// PRE: Member with a complete profile
// POST: 201 with the new signup, or 200 when the member was already signed up
func handleRequestSignup(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	var req signupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := orchestrators.ExecuteRequestSignup(r.Context(), orchestrators.RequestSignupInput{
		UserID:     id.Session.AccountID,
		ActivityID: r.PathValue("id"),
		Answer:     req.Answer,
	}, orchestrators.RequestSignupDeps{
		ActivityStore: stores.ActivityStore,
		ProfileStore:  stores.ProfileStore,
		SignupStore:   stores.SignupStore,
		Metrics:       services.Metrics,
		GenerateID:    generateID,
		Now:           timeNow,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Existed {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"signup_id": result.Signup.ID,
		"status":    result.Signup.Status,
		"message":   result.Message,
		"existed":   result.Existed,
	})
}

// handleMySignups handles GET /api/my-signups
func handleMySignups(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	result, err := projections.QueryMySignups(r.Context(), projections.MySignupsQuery{
		UserID: id.Session.AccountID,
		AsOf:   timeNow(),
	}, projections.MySignupsDeps{ReportStore: stores.ReportStore})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancelSignup handles DELETE /api/my-signups/{kind}/{id}
// POST: The caller's signup is deleted from the table backing kind
func handleCancelSignup(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	kind, err := activity.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	err = orchestrators.ExecuteCancelSignup(r.Context(), orchestrators.CancelSignupInput{
		UserID:   id.Session.AccountID,
		Kind:     kind,
		SignupID: r.PathValue("id"),
	}, orchestrators.CancelSignupDeps{SignupStore: stores.SignupStore})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
