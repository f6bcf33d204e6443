package projections

import (
	"context"
	"time"

	"signups/internal/adapters/storage/report"
	"signups/internal/domain/audit"
)

// ReportStore interface for the aggregation queries.
type ReportStore interface {
	EventTransportDetails(ctx context.Context) ([]report.EventTransport, error)
	EventTransportDetail(ctx context.Context, eventID string) (report.EventTransport, error)
	MySignups(ctx context.Context, userID string, week time.Time) ([]report.MySignup, error)
}

var _ ReportStore = (*report.SQLiteStore)(nil)

// AuditSaver interface for recording admin reads that leave the system.
type AuditSaver interface {
	Save(ctx context.Context, event audit.Event) error
}
