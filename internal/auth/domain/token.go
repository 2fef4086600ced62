package domain

import "time"

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds until the access token expires
}

// RefreshToken models the stored refresh token row. TokenHash is the hex
// SHA-256 of the token's jti; the token itself is never persisted.
type RefreshToken struct {
	ID        string
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoredSecurityContext is the durable audit copy of a computed context.
type StoredSecurityContext struct {
	SecurityContext
	LastActivity time.Time
	ExpiresAt    time.Time
}
