package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	// NotBeforeSkew backdates nbf so slightly fast clocks accept fresh tokens.
	NotBeforeSkew = 30 * time.Second
)

// TypeRefresh marks refresh tokens. Access tokens leave Type empty.
const TypeRefresh = "refresh"

// Claims are the session token claims. Registered claims carry iat, exp,
// nbf, jti, aud and iss; the rest describe the caller's security context at
// the time of issue.
type Claims struct {
	jwt.RegisteredClaims

	UserID    int64  `json:"user_id"`
	ProfileID int64  `json:"profile_id,omitempty"`
	Role      string `json:"role,omitempty"`

	// Team ids the caller may act within. Empty for admins.
	TeamScopes []int64 `json:"team_scopes,omitempty"`

	// Permission flags, e.g. {"can_view_team_players": true}.
	Permissions map[string]bool `json:"permissions,omitempty"`

	Type string `json:"type,omitempty"`
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c Claims) IsRefresh() bool { return c.Type == TypeRefresh }

// ExpiresIn returns the remaining lifetime at now, or zero when expired or
// when no exp is present.
func (c Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Sub(now), 0)
}
