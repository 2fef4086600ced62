package authsdk

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// refreshBuffer refreshes access tokens this long before they expire.
const refreshBuffer = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
type Session struct {
	client *SDKClient
	user   UserInfo

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(client *SDKClient, user UserInfo, tokens *TokenResponse) *Session {
	s := &Session{client: client, user: user}
	s.setTokens(tokens)
	return s
}

func (s *Session) setTokens(tokens *TokenResponse) {
	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.expiresAt = s.client.now().
		Add(time.Duration(tokens.ExpiresIn) * time.Second).
		Add(-refreshBuffer)
}

// User returns the user returned at login.
func (s *Session) User() UserInfo { return s.user }

// Tokens returns the current access and refresh tokens.
func (s *Session) Tokens() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

// getValidToken returns a valid access token, refreshing it first when it
// is about to expire.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.client.now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if s.client.now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	tokens, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", err
	}
	s.setTokens(tokens)
	return s.accessToken, nil
}

func (s *Session) get(ctx context.Context, path string, target any) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}
	resp, err := s.client.doJSON(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, http.StatusOK)
}

// Me returns the caller's user info and current security context.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	var me MeResponse
	if err := s.get(ctx, "/v1/auth/me", &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// ListPlayers returns the players the caller may see.
func (s *Session) ListPlayers(ctx context.Context) ([]Player, error) {
	var out PlayersResponse
	if err := s.get(ctx, "/v1/players", &out); err != nil {
		return nil, err
	}
	return out.Players, nil
}

func (s *Session) GetPlayer(ctx context.Context, id int64) (*Player, error) {
	var p Player
	if err := s.get(ctx, "/v1/players/"+strconv.FormatInt(id, 10), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Logout ends the session on the server. The server always reports success.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.accessToken
	s.accessToken, s.refreshToken = "", ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	resp, err := s.client.doJSON(ctx, http.MethodPost, "/v1/auth/logout", token, nil)
	if err != nil {
		return err
	}
	var out LogoutResponse
	return decodeJSON(resp, &out, http.StatusOK)
}
