package profile_test

import (
	"strings"
	"testing"

	"signups/internal/domain/profile"
)

func strPtr(s string) *string { return &s }

// TestProfile_Validate tests validation of Profile.
func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile profile.Profile
		wantErr error
	}{
		{"valid driver", profile.Profile{Name: "Jo Smith", Role: profile.RoleDriver, CarSpaces: 4}, nil},
		{"valid member", profile.Profile{Name: "Ana Lee", Role: profile.RoleMember}, nil},
		{"empty name", profile.Profile{Name: "  ", Role: profile.RoleMember}, profile.ErrEmptyName},
		{"unknown role", profile.Profile{Name: "Jo", Role: "Skipper"}, profile.ErrInvalidRole},
		{"driver without spaces", profile.Profile{Name: "Jo", Role: profile.RoleDriver}, profile.ErrDriverNeedsSpaces},
		{"member with spaces", profile.Profile{Name: "Jo", Role: profile.RoleMember, CarSpaces: 2}, profile.ErrMemberHasSpaces},
		{"name at limit", profile.Profile{Name: strings.Repeat("é", 100), Role: profile.RoleMember}, nil},
		{"name too long", profile.Profile{Name: strings.Repeat("n", 101), Role: profile.RoleMember}, profile.ErrNameTooLong},
		{"student number too long", profile.Profile{Name: "Jo", Role: profile.RoleMember, StudentNumber: strPtr(strings.Repeat("1", 21))}, profile.ErrStudentNumberLong},
		{"too many spaces", profile.Profile{Name: "Jo", Role: profile.RoleDriver, CarSpaces: 13}, profile.ErrTooManySpaces},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestProfile_IsComplete tests the setup-completeness rule.
func TestProfile_IsComplete(t *testing.T) {
	tests := []struct {
		name    string
		profile *profile.Profile
		want    bool
	}{
		{"nil profile", nil, false},
		{"no student number", &profile.Profile{Name: "Jo"}, false},
		{"blank student number", &profile.Profile{Name: "Jo", StudentNumber: strPtr(" ")}, false},
		{"complete", &profile.Profile{Name: "Jo", StudentNumber: strPtr("2112345")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.IsComplete(); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestProfile_TransportFor tests that exactly one flag is set by role.
func TestProfile_TransportFor(t *testing.T) {
	driver := &profile.Profile{Role: profile.RoleDriver}
	member := &profile.Profile{Role: profile.RoleMember}

	if got := driver.TransportFor(true); !got.CanDrive || got.TransportNeeded {
		t.Errorf("driver TransportFor(true) = %+v", got)
	}
	if got := member.TransportFor(true); got.CanDrive || !got.TransportNeeded {
		t.Errorf("member TransportFor(true) = %+v", got)
	}
	if got := member.TransportFor(false); got.CanDrive || got.TransportNeeded {
		t.Errorf("member TransportFor(false) = %+v", got)
	}
}
