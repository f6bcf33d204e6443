package web

import (
	"net/http"
	"strconv"

	auditStore "signups/internal/adapters/storage/audit"
	auditDomain "signups/internal/domain/audit"
)

// handleAdminAuditTrail handles GET /api/admin/audit
// PRE: User must be authenticated as admin
// POST: Returns audit events, newest first, with optional filters
func handleAdminAuditTrail(w http.ResponseWriter, r *http.Request) {
	filter := auditStore.Filter{}

	if category := r.URL.Query().Get("category"); category != "" {
		cat := auditDomain.Category(category)
		filter.Category = &cat
	}
	if actorID := r.URL.Query().Get("actor_id"); actorID != "" {
		filter.ActorID = &actorID
	}
	if resourceID := r.URL.Query().Get("resource_id"); resourceID != "" {
		filter.ResourceID = &resourceID
	}

	// Parse limit, default to 100
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	events, err := stores.AuditStore.List(r.Context(), filter, limit)
	if err != nil {
		internalError(w, err)
		return
	}
	if events == nil {
		events = []auditDomain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
