package authsdk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hollandstar/sportteams/pkg/authsdk"
	"github.com/hollandstar/sportteams/pkg/httpx"
	"github.com/stretchr/testify/require"
)

// fakeServer issues "access-N"/"refresh-N" pairs and only accepts the
// newest access token on /v1/auth/me.
type fakeServer struct {
	generation atomic.Int64
}

func (f *fakeServer) tokens() authsdk.TokenResponse {
	n := f.generation.Add(1)
	return authsdk.TokenResponse{
		AccessToken:  "access-" + strconv.FormatInt(n, 10),
		RefreshToken: "refresh-" + strconv.FormatInt(n, 10),
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	}
}

func (f *fakeServer) current() string {
	return "access-" + strconv.FormatInt(f.generation.Load(), 10)
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			authsdk.ErrInvalidCredentials.WriteError(w)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			User:          authsdk.UserInfo{ID: 1, Email: req.Email, Role: "coach"},
			TokenResponse: f.tokens(),
		})
	})
	mux.HandleFunc("POST /v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, f.tokens())
	})
	mux.HandleFunc("GET /v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		token, _ := httpx.BearerToken(r)
		if token != f.current() {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{User: authsdk.UserInfo{ID: 1}, TeamScopes: []int64{3}})
	})
	mux.HandleFunc("POST /v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{Success: true})
	})
	return mux
}

func TestSessionLifecycle(t *testing.T) {
	fake := &fakeServer{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	client := authsdk.NewSDKClient(srv.URL + "/")
	client.Now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("bad credentials", func(t *testing.T) {
		_, err := client.Login(ctx, "coach@example.com", "wrong")
		require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

		var apiErr *authsdk.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	session, err := client.Login(ctx, "coach@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "coach", session.User().Role)

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{3}, me.TeamScopes)

	// Within the refresh buffer the session rotates before calling /me.
	now = now.Add(time.Hour - 10*time.Second)
	_, err = session.Me(ctx)
	require.NoError(t, err)
	access, refresh := session.Tokens()
	require.Equal(t, "access-2", access)
	require.Equal(t, "refresh-2", refresh)

	require.NoError(t, session.Logout(ctx))
	access, _ = session.Tokens()
	require.Empty(t, access)
}

func TestParseUnknownErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	t.Cleanup(srv.Close)

	_, err := authsdk.NewSDKClient(srv.URL).GetLiveness(context.Background())
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeServerError, apiErr.Code)
}
