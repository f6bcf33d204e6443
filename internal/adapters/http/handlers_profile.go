package web

import (
	"net/http"

	"github.com/gorilla/csrf"

	"signups/internal/adapters/http/middleware"
	"signups/internal/application/orchestrators"
	"signups/internal/application/routeguard"
	"signups/internal/domain/profile"
)

type profileResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	StudentNumber string `json:"student_number"`
	CarSpaces     int    `json:"car_spaces"`
	IsAdmin       bool   `json:"is_admin"`
}

func toProfileResponse(p *profile.Profile) *profileResponse {
	if p == nil {
		return nil
	}
	return &profileResponse{
		ID:            p.ID,
		Name:          p.Name,
		Email:         p.Email,
		Role:          p.Role,
		StudentNumber: p.StudentNumberOrEmpty(),
		CarSpaces:     p.CarSpaces,
		IsAdmin:       p.IsAdmin,
	}
}

type sessionResponse struct {
	Authenticated bool             `json:"authenticated"`
	Email         string           `json:"email,omitempty"`
	Recovery      bool             `json:"recovery"`
	Loading       bool             `json:"loading"`
	IsAdmin       bool             `json:"is_admin"`
	Profile       *profileResponse `json:"profile"`
	Guard         string           `json:"guard"`
	Redirect      string           `json:"redirect,omitempty"`
	CSRFToken     string           `json:"csrf_token,omitempty"`
}

// handleSession handles GET /api/session
// POST: Describes the caller's auth state as the route guard sees it
func handleSession(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{CSRFToken: csrf.Token(r)}

	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		resp.Guard = routeguard.Unauthenticated.String()
		resp.Redirect = routeguard.SignInPath
		writeJSON(w, http.StatusOK, resp)
		return
	}

	st := id.State()
	d := routeguard.Evaluate(st, routeguard.Requirement{})
	resp.Authenticated = true
	resp.Email = id.Session.Email
	resp.Recovery = id.Session.Recovery
	resp.Loading = st.Loading
	resp.IsAdmin = st.IsAdmin
	resp.Profile = toProfileResponse(st.Profile)
	resp.Guard = d.State.String()
	resp.Redirect = d.Redirect
	if id.Session.Recovery {
		resp.Redirect = middleware.UpdatePasswordPath
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetProfile handles GET /api/profile
func handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	p, err := stores.ProfileStore.GetByID(r.Context(), id.Session.AccountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(&p))
}

// handleSetupProfile handles POST /api/profile
// PRE: Signed in
// POST: Profile saved and the caller's auth state reloaded
func handleSetupProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	var req profileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := orchestrators.ExecuteSetupProfile(r.Context(), orchestrators.SetupProfileInput{
		AccountID:     id.Session.AccountID,
		Email:         id.Session.Email,
		Name:          req.Name,
		Role:          req.Role,
		StudentNumber: req.StudentNumber,
		CarSpaces:     req.CarSpaces,
	}, orchestrators.SetupProfileDeps{ProfileStore: stores.ProfileStore})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if id.Store != nil {
		id.Store.Refresh(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profile":  toProfileResponse(&p),
		"redirect": routeguard.DashboardPath,
	})
}
