package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hollandstar/sportteams/pkg/httpx"
	"github.com/stretchr/testify/require"
)

type staticValidator map[string]httpx.Identity

func (v staticValidator) ValidateBearer(_ context.Context, token string) (httpx.Identity, error) {
	id, ok := v[token]
	if !ok {
		return httpx.Identity{}, errors.New("unknown token")
	}
	return id, nil
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"valid":        {"Bearer abc.def", "abc.def", true},
		"missing":      {"", "", false},
		"wrong scheme": {"Basic dXNlcjpwYXNz", "", false},
		"lowercase":    {"bearer abc", "", false},
		"empty token":  {"Bearer   ", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			token, ok := httpx.BearerToken(req)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.token, token)
		})
	}
}

func TestAuthnMiddleware(t *testing.T) {
	coach := httpx.Identity{UserID: 7, ProfileID: 70, Role: "coach", TokenID: "jti-1"}
	ev := &recordingEvents{}

	var seen httpx.Identity
	h := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := httpx.IdentityFrom(r.Context())
			require.True(t, ok)
			seen = id
			w.WriteHeader(http.StatusNoContent)
		}),
		httpx.AuthnMiddleware(staticValidator{"good": coach}, ev),
	)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
		require.ErrorIs(t, ev.failures[0], httpx.ErrMissingBearer)
	})

	t.Run("invalid token has the same generic body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"invalid_token","error_description":"invalid credentials"}`, rec.Body.String())
		require.Len(t, ev.failures, 2)
	})

	t.Run("valid token injects identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, coach, seen)
		require.Equal(t, []httpx.Identity{coach}, ev.access)
	})
}

func TestRequireRole(t *testing.T) {
	h := httpx.RequireRole("admin", "head_coach")(okHandler)

	withRole := func(role string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(httpx.WithIdentity(req.Context(), httpx.Identity{UserID: 1, Role: role}))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withRole("admin"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withRole("player"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "insufficient_permissions")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := httpx.Chain(okHandler, mw("first"), mw("second"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"first", "second"}, order)
}
