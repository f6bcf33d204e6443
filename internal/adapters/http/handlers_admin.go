package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"signups/internal/adapters/http/middleware"
	"signups/internal/adapters/objectstore"
	"signups/internal/application/directory"
	"signups/internal/application/orchestrators"
	"signups/internal/application/projections"
	"signups/internal/domain/activity"
	"signups/internal/domain/signup"
)

// maxUploadBytes leaves room for multipart framing around the largest object.
const maxUploadBytes = objectstore.MaxObjectSize + 1<<20

// handleAdminReview handles GET /api/admin/review
// POST: Upcoming events ascending, past events descending, with transport counts
func handleAdminReview(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryAdminReview(r.Context(), projections.AdminReviewQuery{AsOf: timeNow()},
		projections.AdminReviewDeps{ReportStore: stores.ReportStore})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDecideSignup handles POST /api/admin/signups/{id}/decision
// PRE: Admin; the signup is waitlisted
// POST: Status is Confirmed or Cancelled; the member is emailed
func handleDecideSignup(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	var req decisionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	s, err := orchestrators.ExecuteDecideSignup(r.Context(), orchestrators.DecideSignupInput{
		Actor:    id.State().Profile,
		SignupID: r.PathValue("id"),
		Decision: signup.Decision(req.Decision),
	}, orchestrators.DecideSignupDeps{
		SignupStore:   stores.SignupStore,
		ActivityStore: stores.ActivityStore,
		ProfileStore:  stores.ProfileStore,
		Mailer:        services.Mailer,
		Audit:         stores.AuditStore,
		Metrics:       services.Metrics,
		Now:           timeNow,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signup_id": s.ID, "status": s.Status})
}

// handleCreateActivity handles POST /api/admin/activities
// PRE: Admin
// POST: 201 with the activity; on failure the submitted draft is echoed back
func handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	var req activityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	draft, err := draftFromRequest(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "invalid input",
			"fields": map[string]string{"date": errInvalidDate.Error()},
		})
		return
	}

	dir := directory.New(directory.Deps{
		Activities: stores.ActivityStore,
		Signups:    stores.SignupStore,
		Photos:     services.Photos,
		Audit:      stores.AuditStore,
		GenerateID: generateID,
		Now:        timeNow,
	})
	a, err := dir.CreateActivity(r.Context(), id.State().Profile, draft)
	if err != nil {
		var de *directory.DraftError
		if errors.As(err, &de) {
			if status, ok := statusFor(de.Err); ok && status == http.StatusBadRequest {
				writeJSON(w, status, map[string]any{"error": de.Err.Error(), "draft": req})
				return
			}
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        a.ID,
		"kind":      a.Kind,
		"name":      a.Name,
		"image_url": a.Image.URL,
	})
}

// errInvalidDate is returned by draftFromRequest for a malformed event date.
var errInvalidDate = errors.New("date must be YYYY-MM-DD")

// draftFromRequest converts the validated request into a directory draft.
func draftFromRequest(req activityRequest) (directory.Draft, error) {
	draft := directory.Draft{
		Kind:                 activity.Kind(req.Kind),
		Name:                 req.Name,
		Location:             req.Location,
		Description:          req.Description,
		ImageURL:             req.ImageURL,
		RequiresApproval:     req.RequiresApproval,
		EarlyWeekSignupsOnly: req.EarlyWeekSignupsOnly,
	}
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return directory.Draft{}, fmt.Errorf("%w: %q", errInvalidDate, req.Date)
		}
		draft.Date = d
	}
	if req.Weekday != nil {
		draft.Weekday = time.Weekday(*req.Weekday)
	}
	return draft, nil
}

// handleUploadImage handles POST /api/admin/images (multipart: file, activity_id)
// PRE: Admin
// POST: Image stored; returns its public path
func handleUploadImage(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDomainError(w, objectstore.ErrTooLarge)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected a multipart form with a file"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()

	path, err := orchestrators.ExecuteUploadActivityImage(r.Context(), orchestrators.UploadImageInput{
		Actor:      id.State().Profile,
		Filename:   header.Filename,
		Body:       file,
		ActivityID: r.FormValue("activity_id"),
	}, orchestrators.UploadImageDeps{
		Objects:       services.Objects,
		ActivityStore: stores.ActivityStore,
		Audit:         stores.AuditStore,
		Now:           timeNow,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

// handleExportSignups handles GET /api/admin/events/{id}/export.csv
// PRE: Admin
// POST: CSV attachment of the event's signups
func handleExportSignups(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())
	result, err := projections.QueryExportSignups(r.Context(), projections.ExportSignupsQuery{
		Actor:   id.State().Profile,
		EventID: r.PathValue("id"),
	}, projections.ExportSignupsDeps{
		ReportStore: stores.ReportStore,
		Audit:       stores.AuditStore,
		Now:         timeNow,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.Write([]byte(result.CSV))
}

// handlePerfSnapshot handles GET /api/admin/perf?minutes=
// POST: Request percentiles and slowest routes and queries
func handlePerfSnapshot(w http.ResponseWriter, r *http.Request) {
	if perfCollector == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "timing is disabled"})
		return
	}
	minutes := 15
	if v, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && v > 0 && v <= 24*60 {
		minutes = v
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-time.Duration(minutes)*time.Minute), 10))
}
