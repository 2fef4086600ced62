// Package audit turns security events into structured log records and
// counters. Token material is never logged.
package audit

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hollandstar/sportteams/internal/telemetry"
	"github.com/hollandstar/sportteams/pkg/httpx"
	"github.com/hollandstar/sportteams/pkg/slogx"
)

// Event names.
const (
	EventAPIAccess      = "api_access"
	EventAuthFailure    = "auth_failure"
	EventRateLimited    = "rate_limit_exceeded"
	EventTokenRejected  = "token_rejected"
	EventLoginSucceeded = "login_succeeded"
	EventLoginFailed    = "login_failed"
	EventLogout         = "logout"
)

// Log is the security event sink. The zero value logs through the
// request-scoped logger and records no metrics.
type Log struct {
	Metrics *telemetry.Metrics
}

func New(m *telemetry.Metrics) *Log { return &Log{Metrics: m} }

func (l *Log) log(ctx context.Context) *slog.Logger {
	return slogx.FromContext(ctx).With("audit", true)
}

func requestAttrs(r *http.Request) []any {
	return []any{
		"path", r.URL.Path,
		"method", r.Method,
		"ip", httpx.ClientIP(r),
		"user_agent", r.UserAgent(),
	}
}

// Access implements httpx.Events.
func (l *Log) Access(ctx context.Context, r *http.Request, id httpx.Identity) {
	args := append([]any{"event", EventAPIAccess, "user_id", id.UserID, "role", id.Role}, requestAttrs(r)...)
	l.log(ctx).Info("api access", args...)
}

// AuthFailure implements httpx.Events.
func (l *Log) AuthFailure(ctx context.Context, r *http.Request, err error) {
	args := append([]any{"event", EventAuthFailure, "reason", err.Error()}, requestAttrs(r)...)
	l.log(ctx).Warn("authentication failed", args...)
}

// RateLimited implements httpx.Events.
func (l *Log) RateLimited(ctx context.Context, r *http.Request, key string, d httpx.Decision) {
	args := append([]any{
		"event", EventRateLimited,
		"key", key,
		"count", d.Count,
		"limit", d.Limit,
		"retry_after", d.RetryAfter.String(),
	}, requestAttrs(r)...)
	l.log(ctx).Warn("rate limit exceeded", args...)
	l.Metrics.RateLimited(ctx, routeLabel(r))
}

// unmatchedRoute labels requests the mux did not route.
const unmatchedRoute = "unmatched"

func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}
	return r.Pattern
}

// TokenRejected records why a token failed validation. Callers only ever
// see a generic authentication failure.
func (l *Log) TokenRejected(ctx context.Context, reason, tokenID string) {
	l.log(ctx).Warn("token rejected", "event", EventTokenRejected, "reason", reason, "jti", tokenID)
	l.Metrics.TokenRejected(ctx, reason)
}

func (l *Log) LoginSucceeded(ctx context.Context, userID int64, ip string) {
	l.log(ctx).Info("login succeeded", "event", EventLoginSucceeded, "user_id", userID, "ip", ip)
	l.Metrics.Login(ctx, "success")
}

func (l *Log) LoginFailed(ctx context.Context, email, ip, reason string) {
	l.log(ctx).Warn("login failed", "event", EventLoginFailed, "email", email, "ip", ip, "reason", reason)
	l.Metrics.Login(ctx, "failure")
}

func (l *Log) Logout(ctx context.Context, userID int64) {
	l.log(ctx).Info("logout", "event", EventLogout, "user_id", userID)
}
