package projections

import (
	"context"
	"time"

	"signups/internal/adapters/storage/report"
	"signups/internal/domain/activity"
	"signups/internal/domain/signup"
)

// ReviewMember is one signup row in the admin panel.
type ReviewMember struct {
	report.Member
	Label      signup.Label
	Actionable bool
}

// ReviewEvent is one event card in the admin panel. The counts come from the
// store unchanged.
type ReviewEvent struct {
	EventID                  string
	Name                     string
	Date                     time.Time
	RequiresApproval         bool
	TotalSignups             int
	PassengersNeedingLifts   int
	AvailablePassengerSpaces int
	TransportColor           signup.Color
	Members                  []ReviewMember
}

// AdminReviewQuery carries query parameters.
type AdminReviewQuery struct {
	AsOf time.Time
}

// AdminReviewResult splits events around today.
type AdminReviewResult struct {
	Upcoming []ReviewEvent
	Past     []ReviewEvent
}

// AdminReviewDeps holds dependencies for QueryAdminReview.
type AdminReviewDeps struct {
	ReportStore ReportStore
}

// QueryAdminReview builds the admin review panel.
// POST: Upcoming is ascending by date, Past descending
// INVARIANT: TransportColor is success iff available spaces cover passengers
func QueryAdminReview(ctx context.Context, query AdminReviewQuery, deps AdminReviewDeps) (AdminReviewResult, error) {
	events, err := deps.ReportStore.EventTransportDetails(ctx)
	if err != nil {
		return AdminReviewResult{}, err
	}

	today := activity.Day(query.AsOf)

	var res AdminReviewResult
	for _, e := range events {
		card := reviewEvent(e)
		if activity.Day(e.EventDate).Before(today) {
			res.Past = append([]ReviewEvent{card}, res.Past...)
		} else {
			res.Upcoming = append(res.Upcoming, card)
		}
	}
	return res, nil
}

func reviewEvent(e report.EventTransport) ReviewEvent {
	members := make([]ReviewMember, 0, len(e.Members))
	for _, m := range e.Members {
		s := signup.Signup{Status: m.Status}
		members = append(members, ReviewMember{
			Member:     m,
			Label:      signup.Display(m.Status),
			Actionable: s.IsActionable(e.RequiresApproval),
		})
	}
	return ReviewEvent{
		EventID:                  e.EventID,
		Name:                     e.EventName,
		Date:                     e.EventDate,
		RequiresApproval:         e.RequiresApproval,
		TotalSignups:             e.TotalSignups,
		PassengersNeedingLifts:   e.PassengersNeedingLifts,
		AvailablePassengerSpaces: e.AvailablePassengerSpaces,
		TransportColor:           TransportColor(e.AvailablePassengerSpaces, e.PassengersNeedingLifts),
		Members:                  members,
	}
}

// TransportColor styles the lifts summary of an event.
func TransportColor(available, passengers int) signup.Color {
	if available >= passengers {
		return signup.ColorSuccess
	}
	return signup.ColorWarning
}
