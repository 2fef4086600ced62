package authsdk

// ErrorResponse is the JSON shape of APIError, used when parsing responses.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by POST /v1/auth/refresh and embedded in the
// login response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int64 `json:"expires_in"`
}

// UserInfo describes the caller and their security context.
type UserInfo struct {
	ID                int64           `json:"id"`
	ProfileID         int64           `json:"profile_id"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	Role              string          `json:"role"`
	PreferredLanguage string          `json:"preferred_language,omitempty"`
	TeamScopes        []int64         `json:"team_scopes"`
	Permissions       map[string]bool `json:"permissions"`
}

type LoginResponse struct {
	User UserInfo `json:"user"`
	TokenResponse
}

// MeResponse is returned by GET /v1/auth/me.
type MeResponse struct {
	User        UserInfo        `json:"user"`
	TeamScopes  []int64         `json:"team_scopes"`
	Permissions map[string]bool `json:"permissions"`
}

type LogoutResponse struct {
	Success bool `json:"success"`
}

type Player struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProfileID *int64 `json:"profile_id,omitempty"`
	TeamID    *int64 `json:"team_id,omitempty"`
	IsActive  bool   `json:"is_active"`

	// CanEdit is only filled in on single-player reads.
	CanEdit *bool `json:"can_edit,omitempty"`
}

type PlayersResponse struct {
	Players []Player `json:"players"`
}

// SecurityContextResponse is the persisted audit copy of a user's context.
type SecurityContextResponse struct {
	UserID       int64           `json:"user_id"`
	ProfileID    int64           `json:"profile_id"`
	Role         string          `json:"role"`
	TeamScopes   []int64         `json:"team_scopes"`
	Permissions  map[string]bool `json:"permissions"`
	LastActivity int64           `json:"last_activity"`
	ExpiresAt    int64           `json:"expires_at"`
}

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}
