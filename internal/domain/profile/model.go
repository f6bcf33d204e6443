package profile

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Role constants
const (
	RoleDriver = "Driver"
	RoleMember = "Member"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength          = 100
	MaxStudentNumberLength = 20
	MaxCarSpaces           = 12
)

// Domain errors
var (
	ErrEmptyName         = errors.New("name is required")
	ErrInvalidRole       = errors.New("role must be Driver or Member")
	ErrDriverNeedsSpaces = errors.New("drivers must offer at least one car space")
	ErrMemberHasSpaces   = errors.New("only drivers can offer car spaces")
	ErrNotFound          = errors.New("profile not found")
	ErrNameTooLong       = errors.New("name cannot exceed 100 characters")
	ErrStudentNumberLong = errors.New("student number cannot exceed 20 characters")
	ErrTooManySpaces     = errors.New("car spaces cannot exceed 12")
)

// Profile is the club-facing user record. ID equals the account ID.
type Profile struct {
	ID            string
	Name          string
	Email         string
	Role          string
	StudentNumber *string
	IsAdmin       bool
	CarSpaces     int
}

// Validate checks the profile fields an account setup form can set.
// PRE: Profile struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(p.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if p.StudentNumber != nil && utf8.RuneCountInString(*p.StudentNumber) > MaxStudentNumberLength {
		return ErrStudentNumberLong
	}
	switch p.Role {
	case RoleDriver:
		if p.CarSpaces < 1 {
			return ErrDriverNeedsSpaces
		}
		if p.CarSpaces > MaxCarSpaces {
			return ErrTooManySpaces
		}
	case RoleMember:
		if p.CarSpaces != 0 {
			return ErrMemberHasSpaces
		}
	default:
		return ErrInvalidRole
	}
	return nil
}

// IsComplete reports whether account setup has been finished.
// INVARIANT: an incomplete profile must be routed to setup
func (p *Profile) IsComplete() bool {
	return p != nil && p.StudentNumber != nil && strings.TrimSpace(*p.StudentNumber) != ""
}

// IsDriver returns true for profiles with the Driver role.
func (p *Profile) IsDriver() bool {
	return p != nil && p.Role == RoleDriver
}

// Transport is the pair of transport flags stored on a signup.
type Transport struct {
	CanDrive        bool
	TransportNeeded bool
}

// TransportFor maps the single yes/no answer on the signup form onto the
// flag the profile's role makes meaningful. Drivers answer "can you drive",
// everyone else answers "do you need transport".
func (p *Profile) TransportFor(answer bool) Transport {
	if p.IsDriver() {
		return Transport{CanDrive: answer}
	}
	return Transport{TransportNeeded: answer}
}

// StudentNumberOrEmpty returns the student number or "".
func (p *Profile) StudentNumberOrEmpty() string {
	if p == nil || p.StudentNumber == nil {
		return ""
	}
	return *p.StudentNumber
}
