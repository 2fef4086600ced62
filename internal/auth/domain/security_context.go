package domain

import "slices"

// SecurityContext is the derived authorization snapshot for one user.
// TeamScopes is empty for admins, whose scope is implicit and global.
type SecurityContext struct {
	UserID      int64       `json:"user_id"`
	ProfileID   int64       `json:"profile_id"`
	Role        Role        `json:"role"`
	TeamScopes  []int64     `json:"team_scopes"`
	Permissions Permissions `json:"permissions"`
}

// InScope reports whether teamID is one of the context's team scopes.
func (sc SecurityContext) InScope(teamID int64) bool {
	return slices.Contains(sc.TeamScopes, teamID)
}

func (sc SecurityContext) Can(flag string) bool { return sc.Permissions.Has(flag) }

// CanView decides whether the context may read the player record.
func (sc SecurityContext) CanView(p Player) bool {
	switch {
	case sc.Role.IsAdmin():
		return true
	case sc.Role.IsPlayer():
		return p.OwnedBy(sc.ProfileID) || sc.sharesTeam(p)
	default:
		return sc.sharesTeam(p)
	}
}

// CanEdit decides whether the context may modify the player record. Players
// may only edit themselves.
func (sc SecurityContext) CanEdit(p Player) bool {
	switch {
	case sc.Role.IsAdmin():
		return true
	case sc.Role.IsPlayer():
		return p.OwnedBy(sc.ProfileID)
	default:
		return sc.CanView(p) && sc.Can(PermEditTeamPlayers)
	}
}

func (sc SecurityContext) sharesTeam(p Player) bool {
	return p.TeamID != nil && sc.InScope(*p.TeamID)
}

// ScopedPlayerFilter returns the predicate limiting which players the
// context may list.
func (sc SecurityContext) ScopedPlayerFilter() PlayerFilter {
	switch {
	case sc.Role.IsAdmin():
		return PlayerFilter{Kind: FilterAllActive}
	case sc.Role.IsPlayer():
		return PlayerFilter{
			Kind:      FilterSelfOrTeams,
			ProfileID: sc.ProfileID,
			TeamIDs:   slices.Clone(sc.TeamScopes),
		}
	case sc.Role.IsCoach() && len(sc.TeamScopes) > 0:
		return PlayerFilter{Kind: FilterTeamsOnly, TeamIDs: slices.Clone(sc.TeamScopes)}
	default:
		return PlayerFilter{Kind: FilterNone}
	}
}

// FilterKind tags the PlayerFilter variant.
type FilterKind uint8

const (
	FilterNone FilterKind = iota
	FilterAllActive
	FilterSelfOrTeams
	FilterTeamsOnly
)

func (k FilterKind) String() string {
	switch k {
	case FilterAllActive:
		return "all_active"
	case FilterSelfOrTeams:
		return "self_or_teams"
	case FilterTeamsOnly:
		return "teams_only"
	default:
		return "none"
	}
}

// PlayerFilter is a structured row predicate. Stores compile it into a
// parameterised WHERE clause; Match evaluates the same predicate in memory.
//
//	AllActive            is_active
//	SelfOrTeams(p, ids)  profile_id = p OR team_id IN ids
//	TeamsOnly(ids)       is_active AND team_id IN ids
//	None                 false
type PlayerFilter struct {
	Kind      FilterKind
	ProfileID int64
	TeamIDs   []int64
}

func (f PlayerFilter) Match(p Player) bool {
	inTeams := p.TeamID != nil && slices.Contains(f.TeamIDs, *p.TeamID)
	switch f.Kind {
	case FilterAllActive:
		return p.IsActive
	case FilterSelfOrTeams:
		return p.OwnedBy(f.ProfileID) || inTeams
	case FilterTeamsOnly:
		return p.IsActive && inTeams
	default:
		return false
	}
}
