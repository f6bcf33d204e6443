package projections

import (
	"context"
	"sort"
	"time"

	"signups/internal/domain/activity"
	"signups/internal/domain/signup"
)

// MySignupRow is one line of the member's signups list.
type MySignupRow struct {
	SignupID   string
	Kind       activity.Kind
	ActivityID string
	Name       string
	Date       time.Time
	Status     signup.Status
	Label      signup.Label
	CanDrive   bool
	NeedsLift  bool
}

// MySignupsQuery carries query parameters.
type MySignupsQuery struct {
	UserID string
	AsOf   time.Time
}

// MySignupsResult carries the query result.
type MySignupsResult struct {
	Rows []MySignupRow
}

// MySignupsDeps holds dependencies for QueryMySignups.
type MySignupsDeps struct {
	ReportStore ReportStore
}

// QueryMySignups lists the member's event signups and this week's session signups.
// POST: Rows are ascending by date; session rows are dated within their week
func QueryMySignups(ctx context.Context, query MySignupsQuery, deps MySignupsDeps) (MySignupsResult, error) {
	list, err := deps.ReportStore.MySignups(ctx, query.UserID, activity.WeekStart(query.AsOf))
	if err != nil {
		return MySignupsResult{}, err
	}

	rows := make([]MySignupRow, 0, len(list))
	for _, m := range list {
		date := m.ItemDate
		if m.ItemType == activity.KindSession {
			date = sessionDate(m.WeekStart, m.Weekday)
		}
		rows = append(rows, MySignupRow{
			SignupID:   m.SignupID,
			Kind:       m.ItemType,
			ActivityID: m.ItemID,
			Name:       m.ItemName,
			Date:       date,
			Status:     m.Status,
			Label:      signup.Display(m.Status),
			CanDrive:   m.CanDrive,
			NeedsLift:  m.NeedsLift,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return activity.Day(rows[i].Date).Before(activity.Day(rows[j].Date)) })
	return MySignupsResult{Rows: rows}, nil
}

// sessionDate returns the day within the week starting on Monday weekStart.
func sessionDate(weekStart time.Time, day time.Weekday) time.Time {
	return weekStart.AddDate(0, 0, (int(day)+6)%7)
}
