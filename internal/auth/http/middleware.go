package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/auth/service"
	"github.com/hollandstar/sportteams/pkg/authsdk"
	"github.com/hollandstar/sportteams/pkg/httpx"
	"github.com/hollandstar/sportteams/pkg/slogx"
)

type ctxKey string

const ctxKeySecurityContext ctxKey = "security_context"

func withSecurityContext(ctx context.Context, sc domain.SecurityContext) context.Context {
	return context.WithValue(ctx, ctxKeySecurityContext, sc)
}

// SecurityContextFrom returns the context loaded by SecurityContextMiddleware.
func SecurityContextFrom(ctx context.Context) (domain.SecurityContext, bool) {
	sc, ok := ctx.Value(ctxKeySecurityContext).(domain.SecurityContext)
	return sc, ok
}

// SecurityContextMiddleware loads the caller's security context after
// authentication. It must run after httpx.AuthnMiddleware.
func SecurityContextMiddleware(contexts *service.SecurityContextService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id, ok := httpx.IdentityFrom(ctx)
			if !ok {
				authsdk.ErrInvalidToken.WriteError(w)
				return
			}

			sc, err := contexts.Load(ctx, id.UserID)
			switch {
			case errors.Is(err, service.ErrProfileNotFound):
				authsdk.ErrProfileNotFound.WriteError(w)
				return
			case err != nil:
				slogx.FromContext(ctx).Error("failed to load security context", "err", err)
				authsdk.ErrServerError.WriteError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(withSecurityContext(ctx, sc)))
		})
	}
}
