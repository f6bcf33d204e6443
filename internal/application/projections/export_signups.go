package projections

import (
	"context"
	"log/slog"
	"time"

	"signups/internal/domain/audit"
	"signups/internal/domain/export"
	"signups/internal/domain/profile"
)

// ExportSignupsQuery identifies the event to export.
type ExportSignupsQuery struct {
	Actor   *profile.Profile
	EventID string
}

// ExportSignupsResult is the download.
type ExportSignupsResult struct {
	Filename string
	CSV      string
}

// ExportSignupsDeps holds dependencies for QueryExportSignups. Audit may be nil.
type ExportSignupsDeps struct {
	ReportStore ReportStore
	Audit       AuditSaver
	Now         func() time.Time
}

// QueryExportSignups renders one event's signups as CSV.
// POST: Returns export.ErrNoSignups for an event without signups
func QueryExportSignups(ctx context.Context, query ExportSignupsQuery, deps ExportSignupsDeps) (ExportSignupsResult, error) {
	e, err := deps.ReportStore.EventTransportDetail(ctx, query.EventID)
	if err != nil {
		return ExportSignupsResult{}, err
	}

	rows := make([]export.Member, 0, len(e.Members))
	for _, m := range e.Members {
		rows = append(rows, export.Member{
			Name:            m.Name,
			StudentNumber:   m.StudentNumber,
			Role:            m.Role,
			CanDrive:        m.CanDrive,
			TransportNeeded: m.TransportNeeded,
			Status:          string(m.Status),
		})
	}
	csv, err := export.SignupsCSV(e.EventName, e.EventDate.Format("2006-01-02"), rows)
	if err != nil {
		return ExportSignupsResult{}, err
	}

	if deps.Audit != nil && query.Actor != nil {
		ev := audit.NewEvent(query.Actor.ID, query.Actor.Email, audit.CategorySignup, audit.ActionExport, deps.Now()).
			WithResource("event", e.EventID).
			WithDescription("Exported signups for " + e.EventName)
		if err := deps.Audit.Save(ctx, ev); err != nil {
			slog.Error("audit_save_failed", "error", err, "event_id", e.EventID)
		}
	}
	return ExportSignupsResult{Filename: export.Filename(e.EventName), CSV: csv}, nil
}
