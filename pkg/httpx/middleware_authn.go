package httpx

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/hollandstar/sportteams/pkg/slogx"
)

var (
	ErrMissingBearer = errors.New("httpx: missing bearer token")
	ErrNoIdentity    = errors.New("httpx: no identity on request")
)

// TokenValidator turns a raw bearer token into an Identity. Every failure
// is reported the same way to the client; the error is only logged.
type TokenValidator interface {
	ValidateBearer(ctx context.Context, token string) (Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return raw, raw != ""
}

// AuthnMiddleware rejects requests without a valid access token and injects
// the caller's Identity into the request context.
func AuthnMiddleware(v TokenValidator, ev Events) Middleware {
	ev = eventsOrNop(ev)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				ev.AuthFailure(ctx, r, ErrMissingBearer)
				writeBearerError(w, "missing bearer token")
				return
			}

			id, err := v.ValidateBearer(ctx, raw)
			if err != nil {
				ev.AuthFailure(ctx, r, err)
				writeBearerError(w, "invalid or expired token")
				return
			}

			ctx = WithIdentity(ctx, id)
			ctx = slogx.With(ctx, "user_id", id.UserID)
			ev.Access(ctx, r, id)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits callers whose identity carries one of roles.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}
			if !slices.Contains(roles, id.Role) {
				WriteError(w, http.StatusForbidden, "insufficient_permissions", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", "invalid credentials")
}
