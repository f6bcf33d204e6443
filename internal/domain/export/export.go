// Package export builds the admin CSV export of an event's signups.
package export

import (
	"errors"
	"strconv"
	"strings"
)

// Header is the literal first line of every export.
const Header = "Event Name,Event Date,Member Name,Student Number,Role,Can Drive,Needs Transport,Status"

// ErrNoSignups is returned when there is nothing to export.
var ErrNoSignups = errors.New("no signups to export")

// Member is one row of the export.
type Member struct {
	Name            string
	StudentNumber   string
	Role            string
	CanDrive        bool
	TransportNeeded bool
	Status          string
}

// SignupsCSV renders the export. String fields are always double-quoted;
// booleans are written bare as true/false.
// PRE: members is non-empty
// POST: header line, then one line per member, joined with "\n"
func SignupsCSV(eventName, eventDate string, members []Member) (string, error) {
	if len(members) == 0 {
		return "", ErrNoSignups
	}
	lines := make([]string, 0, len(members)+1)
	lines = append(lines, Header)
	for _, m := range members {
		lines = append(lines, strings.Join([]string{
			quote(eventName),
			quote(eventDate),
			quote(m.Name),
			quote(m.StudentNumber),
			quote(m.Role),
			strconv.FormatBool(m.CanDrive),
			strconv.FormatBool(m.TransportNeeded),
			quote(m.Status),
		}, ","))
	}
	return strings.Join(lines, "\n"), nil
}

// Filename derives the download name from the event name.
func Filename(eventName string) string {
	var b strings.Builder
	for _, r := range eventName {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.ToLower(b.String()) + "_signups.csv"
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
