package activity

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind discriminates the two signable activity types.
type Kind string

// Kind constants
const (
	KindEvent   Kind = "event"
	KindSession Kind = "session"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength        = 200
	MaxLocationLength    = 200
	MaxDescriptionLength = 5000
)

// Domain errors
var (
	ErrEmptyName       = errors.New("activity name is required")
	ErrMissingDate     = errors.New("events need a date")
	ErrInvalidWeekday  = errors.New("sessions need a weekday")
	ErrInvalidKind     = errors.New("kind must be event or session")
	ErrNotFound        = errors.New("activity not found")
	ErrSignupsNotOpen  = errors.New("signups for this session open on Monday")
	ErrSessionApproval = errors.New("sessions cannot require approval")
	ErrNameTooLong     = errors.New("activity name cannot exceed 200 characters")
	ErrLocationTooLong = errors.New("location cannot exceed 200 characters")
	ErrDescriptionLong = errors.New("description cannot exceed 5000 characters")
)

// Image is a reference to an activity picture plus photographer credit.
type Image struct {
	URL              string
	PhotographerName string
	PhotographerURL  string
}

// Attribution returns the credit line links for a photo search result, or
// nil when the image was not sourced from a photographer.
func (i Image) Attribution(appName string) *Attribution {
	if i.PhotographerName == "" {
		return nil
	}
	ref := "?utm_source=" + url.QueryEscape(appName) + "&utm_medium=referral"
	return &Attribution{
		Photographer:    i.PhotographerName,
		PhotographerURL: i.PhotographerURL + ref,
		SourceURL:       "https://unsplash.com/" + ref,
	}
}

// Attribution is rendered under a tile image.
type Attribution struct {
	Photographer    string
	PhotographerURL string
	SourceURL       string
}

// Activity is a signable item: a one-off Event or a weekly recurring Session.
// Events carry a fixed Date; sessions carry a Weekday and their date is
// computed relative to "now" with NextDate.
type Activity struct {
	ID                   string
	Kind                 Kind
	Name                 string
	Date                 time.Time
	Location             string
	Description          string
	Image                Image
	RequiresApproval     bool
	Weekday              time.Weekday
	EarlyWeekSignupsOnly bool
	CreatedAt            time.Time
}

// Validate checks if the Activity has valid data.
// PRE: Activity struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Activity) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(a.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if utf8.RuneCountInString(a.Location) > MaxLocationLength {
		return ErrLocationTooLong
	}
	if utf8.RuneCountInString(a.Description) > MaxDescriptionLength {
		return ErrDescriptionLong
	}
	switch a.Kind {
	case KindEvent:
		if a.Date.IsZero() {
			return ErrMissingDate
		}
	case KindSession:
		if a.Weekday < time.Sunday || a.Weekday > time.Saturday {
			return ErrInvalidWeekday
		}
		if a.RequiresApproval {
			return ErrSessionApproval
		}
	default:
		return ErrInvalidKind
	}
	return nil
}

// DateOn returns the date used to list the activity as of asOf.
// Events return their fixed date; sessions return their next occurrence.
func (a *Activity) DateOn(asOf time.Time) time.Time {
	if a.Kind == KindSession {
		return a.NextDate(asOf)
	}
	return a.Date
}

// NextDate returns the next occurrence of a session on or after asOf,
// truncated to midnight in asOf's location.
func (a *Activity) NextDate(asOf time.Time) time.Time {
	day := truncateDay(asOf)
	diff := (int(a.Weekday) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, diff)
}

// SignupsOpen reports whether a signup may be requested at now.
// Sessions flagged EarlyWeekSignupsOnly accept signups Monday to Wednesday.
func (a *Activity) SignupsOpen(now time.Time) bool {
	if a.Kind != KindSession || !a.EarlyWeekSignupsOnly {
		return true
	}
	switch now.Weekday() {
	case time.Monday, time.Tuesday, time.Wednesday:
		return true
	}
	return false
}

// WeekStart returns midnight on the Monday of t's week.
// INVARIANT: a session signup is scoped to the week containing its request.
func WeekStart(t time.Time) time.Time {
	day := truncateDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// ParseKind converts a path segment or stored string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindEvent, KindSession:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// PartitionByDate splits activities into upcoming (date >= asOf's day,
// ascending) and past (descending). Days are compared as calendar dates, so
// an event stored as UTC midnight stays upcoming all day in any zone.
// The input slice is not modified.
func PartitionByDate(list []Activity, asOf time.Time) (upcoming, past []Activity) {
	today := Day(asOf)
	for _, a := range list {
		if Day(a.DateOn(asOf)).Before(today) {
			past = append(past, a)
		} else {
			upcoming = append(upcoming, a)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return Day(upcoming[i].DateOn(asOf)).Before(Day(upcoming[j].DateOn(asOf)))
	})
	sort.SliceStable(past, func(i, j int) bool {
		return Day(past[i].DateOn(asOf)).After(Day(past[j].DateOn(asOf)))
	})
	return upcoming, past
}

// Day returns the calendar date of t, read in t's own location, as UTC
// midnight. Stored dates use the same form.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
