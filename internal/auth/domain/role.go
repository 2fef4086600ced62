package domain

import "fmt"

// Role is the closed set of roles a profile can hold.
type Role uint8

const (
	RoleUnknown Role = iota
	RolePlayer
	RoleCoach
	RoleHeadCoach
	RoleAssistantCoach
	RoleAdmin
)

var roleNames = [...]string{
	RoleUnknown:        "unknown",
	RolePlayer:         "player",
	RoleCoach:          "coach",
	RoleHeadCoach:      "head_coach",
	RoleAssistantCoach: "assistant_coach",
	RoleAdmin:          "admin",
}

// ParseRole maps a stored role string to a Role. Unrecognised strings yield
// RoleUnknown, which is granted the player permission set.
func ParseRole(s string) Role {
	for r, name := range roleNames {
		if name == s {
			return Role(r)
		}
	}
	return RoleUnknown
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", r)
}

// IsAdmin reports whether r has implicit global scope.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// IsCoach covers every coaching role.
func (r Role) IsCoach() bool {
	switch r {
	case RoleCoach, RoleHeadCoach, RoleAssistantCoach:
		return true
	default:
		return false
	}
}

// IsPlayer reports whether r is restricted to its own data and teammates.
func (r Role) IsPlayer() bool { return r == RolePlayer }

// DefaultPermissions returns a fresh copy of the role's static permission set.
func (r Role) DefaultPermissions() Permissions {
	switch r {
	case RoleAdmin:
		return adminPermissions.Clone()
	case RoleCoach:
		return coachPermissions.Clone()
	case RoleHeadCoach:
		p := coachPermissions.Clone()
		p[PermManageTeamCoaches] = true
		return p
	case RolePlayer, RoleAssistantCoach, RoleUnknown:
		return playerPermissions.Clone()
	default:
		return playerPermissions.Clone()
	}
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}
