// Package report runs the read-only aggregation queries behind the admin
// review panel and the member's "my signups" list.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"signups/internal/adapters/storage"
	"signups/internal/domain/activity"
	"signups/internal/domain/signup"
)

// EventTransport is one event row of the admin review panel.
// The counts are computed in SQL and treated as opaque by callers.
type EventTransport struct {
	EventID                  string
	EventName                string
	EventDate                time.Time
	RequiresApproval         bool
	TotalSignups             int
	PassengersNeedingLifts   int
	AvailablePassengerSpaces int
	Members                  []Member
}

// Member is one signup of an event, joined with the member's profile.
type Member struct {
	SignupID        string
	UserID          string
	Name            string
	StudentNumber   string
	Role            string
	CarSpaces       int
	CanDrive        bool
	TransportNeeded bool
	Status          signup.Status
}

// MySignup is one row of a member's own signups list.
type MySignup struct {
	SignupID  string
	ItemType  activity.Kind
	ItemID    string
	ItemName  string
	ItemDate  time.Time
	Weekday   time.Weekday
	WeekStart time.Time
	Status    signup.Status
	CanDrive  bool
	NeedsLift bool
}

// Store runs the aggregation queries.
type Store interface {
	EventTransportDetails(ctx context.Context) ([]EventTransport, error)
	EventTransportDetail(ctx context.Context, eventID string) (EventTransport, error)
	MySignups(ctx context.Context, userID string, week time.Time) ([]MySignup, error)
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new report store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Cancelled signups are listed but never counted. A driver's own seat is
// not a passenger space.
const transportQuery = `
SELECT e.id, e.name, e.event_date, e.requires_approval,
	COUNT(s.id),
	COALESCE(SUM(CASE WHEN s.transport_needed = 1 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN s.can_drive = 1 AND u.car_spaces > 1 THEN u.car_spaces - 1 ELSE 0 END), 0)
FROM events e
LEFT JOIN signups s ON s.event_id = e.id AND s.status <> 'Cancelled'
LEFT JOIN users u ON u.id = s.user_id
`

const memberQuery = `
SELECT s.event_id, s.id, s.user_id, u.name, COALESCE(u.student_number, ''), u.role, u.car_spaces,
	s.can_drive, s.transport_needed, s.status
FROM signups s
JOIN users u ON u.id = s.user_id
`

// EventTransportDetails returns every event with its aggregates and members,
// ordered by event date.
func (s *SQLiteStore) EventTransportDetails(ctx context.Context) ([]EventTransport, error) {
	rows, err := s.db.QueryContext(ctx, transportQuery+" GROUP BY e.id ORDER BY e.event_date, e.name")
	if err != nil {
		return nil, fmt.Errorf("transport details: %w", err)
	}
	events, err := scanTransport(rows)
	if err != nil {
		return nil, err
	}
	members, err := s.members(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Members = members[events[i].EventID]
	}
	return events, nil
}

// EventTransportDetail returns one event's aggregates and members.
// POST: Returns an error wrapping activity.ErrNotFound for an unknown event
func (s *SQLiteStore) EventTransportDetail(ctx context.Context, eventID string) (EventTransport, error) {
	rows, err := s.db.QueryContext(ctx, transportQuery+" WHERE e.id = ? GROUP BY e.id", eventID)
	if err != nil {
		return EventTransport{}, fmt.Errorf("transport detail: %w", err)
	}
	events, err := scanTransport(rows)
	if err != nil {
		return EventTransport{}, err
	}
	if len(events) == 0 {
		return EventTransport{}, fmt.Errorf("event %s: %w", eventID, activity.ErrNotFound)
	}
	members, err := s.members(ctx, " WHERE s.event_id = ?", []interface{}{eventID})
	if err != nil {
		return EventTransport{}, err
	}
	events[0].Members = members[eventID]
	return events[0], nil
}

func scanTransport(rows *sql.Rows) ([]EventTransport, error) {
	defer rows.Close()
	var out []EventTransport
	for rows.Next() {
		var e EventTransport
		var date string
		var requiresApproval int
		if err := rows.Scan(&e.EventID, &e.EventName, &date, &requiresApproval,
			&e.TotalSignups, &e.PassengersNeedingLifts, &e.AvailablePassengerSpaces); err != nil {
			return nil, err
		}
		e.EventDate = storage.ParseTime(date)
		e.RequiresApproval = requiresApproval != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) members(ctx context.Context, where string, args []interface{}) (map[string][]Member, error) {
	rows, err := s.db.QueryContext(ctx, memberQuery+where+" ORDER BY s.created_at", args...)
	if err != nil {
		return nil, fmt.Errorf("event members: %w", err)
	}
	defer rows.Close()

	out := map[string][]Member{}
	for rows.Next() {
		var eventID, status string
		var m Member
		var canDrive, transportNeeded int
		if err := rows.Scan(&eventID, &m.SignupID, &m.UserID, &m.Name, &m.StudentNumber, &m.Role, &m.CarSpaces,
			&canDrive, &transportNeeded, &status); err != nil {
			return nil, err
		}
		m.CanDrive = canDrive != 0
		m.TransportNeeded = transportNeeded != 0
		m.Status = signup.ParseStatus(status)
		out[eventID] = append(out[eventID], m)
	}
	return out, rows.Err()
}

// MySignups returns the member's event signups and this week's session
// signups. Session dates are resolved by the caller from Weekday.
func (s *SQLiteStore) MySignups(ctx context.Context, userID string, week time.Time) ([]MySignup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT 'event', s.id, e.id, e.name, e.event_date, 0, '', s.status, s.can_drive, s.transport_needed
		FROM signups s JOIN events e ON e.id = s.event_id
		WHERE s.user_id = ?
		UNION ALL
		SELECT 'session', ss.id, se.id, se.name, '', se.weekday, ss.week_start, ss.status, ss.can_drive, ss.transport_needed
		FROM session_signups ss JOIN sessions se ON se.id = ss.session_id
		WHERE ss.user_id = ? AND ss.week_start = ?`,
		userID, userID, week.Format(storage.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("my signups: %w", err)
	}
	defer rows.Close()

	var out []MySignup
	for rows.Next() {
		var m MySignup
		var kind, date, weekStart, status string
		var weekday, canDrive, needsLift int
		if err := rows.Scan(&kind, &m.SignupID, &m.ItemID, &m.ItemName, &date, &weekday, &weekStart, &status, &canDrive, &needsLift); err != nil {
			return nil, err
		}
		m.ItemType = activity.Kind(kind)
		m.ItemDate = storage.ParseTime(date)
		m.Weekday = time.Weekday(weekday)
		m.WeekStart = storage.ParseTime(weekStart)
		m.Status = signup.ParseStatus(status)
		m.CanDrive = canDrive != 0
		m.NeedsLift = needsLift != 0
		out = append(out, m)
	}
	return out, rows.Err()
}
