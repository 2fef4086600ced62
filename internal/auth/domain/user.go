package domain

import "time"

// User is a login identity. Credentials live here; everything that drives
// authorization lives on the Profile.
type User struct {
	ID           int64
	Email        string
	PasswordHash string // argon2id PHC string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Profile struct {
	ID                int64
	UserID            int64
	Name              string
	Role              Role
	IsActive          bool
	PreferredLanguage string
	LastLoginAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Team struct {
	ID   int64
	Name string
}

// Membership grants a user scope over one team. Permissions holds the
// per-membership overrides merged on top of the role defaults.
type Membership struct {
	ID          int64
	UserID      int64
	TeamID      int64
	ProfileID   int64
	Role        Role
	Permissions Permissions
	IsActive    bool
	GrantedAt   time.Time
}

// Player is a roster entry. ProfileID is set when the player has a login;
// TeamID is set once the player is assigned to a team.
type Player struct {
	ID        int64
	ProfileID *int64
	TeamID    *int64
	Name      string
	IsActive  bool
}

// OwnedBy reports whether the player record belongs to profileID.
func (p Player) OwnedBy(profileID int64) bool {
	return p.ProfileID != nil && *p.ProfileID == profileID
}
