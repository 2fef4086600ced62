package domain

import (
	"maps"
	"slices"
)

// Permission flags.
const (
	PermViewAllPlayers      = "can_view_all_players"
	PermEditAllPlayers      = "can_edit_all_players"
	PermDeletePlayers       = "can_delete_players"
	PermManageTeams         = "can_manage_teams"
	PermManageUsers         = "can_manage_users"
	PermCreateEvaluations   = "can_create_evaluations"
	PermViewAllEvaluations  = "can_view_all_evaluations"
	PermManageSettings      = "can_manage_settings"
	PermViewTeamPlayers     = "can_view_team_players"
	PermEditTeamPlayers     = "can_edit_team_players"
	PermViewTeamEvaluations = "can_view_team_evaluations"
	PermManageTeamGoals     = "can_manage_team_goals"
	PermViewTeamReports     = "can_view_team_reports"
	PermManageTeamCoaches   = "can_manage_team_coaches"
	PermViewOwnData         = "can_view_own_data"
	PermEditOwnProfile      = "can_edit_own_profile"
	PermViewOwnEvaluations  = "can_view_own_evaluations"
	PermViewOwnGoals        = "can_view_own_goals"
	PermViewTeammates       = "can_view_teammates"
)

// Permissions is a capability set keyed by flag name.
type Permissions map[string]bool

var (
	adminPermissions = Permissions{
		PermViewAllPlayers:     true,
		PermEditAllPlayers:     true,
		PermDeletePlayers:      true,
		PermManageTeams:        true,
		PermManageUsers:        true,
		PermCreateEvaluations:  true,
		PermViewAllEvaluations: true,
		PermManageSettings:     true,
	}
	coachPermissions = Permissions{
		PermViewTeamPlayers:     true,
		PermEditTeamPlayers:     true,
		PermCreateEvaluations:   true,
		PermViewTeamEvaluations: true,
		PermManageTeamGoals:     true,
		PermViewTeamReports:     true,
	}
	playerPermissions = Permissions{
		PermViewOwnData:        true,
		PermEditOwnProfile:     true,
		PermViewOwnEvaluations: true,
		PermViewOwnGoals:       true,
		PermViewTeammates:      true,
	}
)

// Has reports whether flag is granted.
func (p Permissions) Has(flag string) bool { return p[flag] }

// Merge copies overrides into p. Overrides win on key collision, including
// explicit false values.
func (p Permissions) Merge(overrides Permissions) {
	maps.Copy(p, overrides)
}

func (p Permissions) Clone() Permissions {
	out := make(Permissions, len(p))
	maps.Copy(out, p)
	return out
}

// Granted returns the sorted names of all flags set to true.
func (p Permissions) Granted() []string {
	out := make([]string, 0, len(p))
	for k, v := range p {
		if v {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
