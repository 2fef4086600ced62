package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the service's counters. A nil *Metrics records nothing.
type Metrics struct {
	tokensIssued    metric.Int64Counter
	tokenRejections metric.Int64Counter
	rateLimited     metric.Int64Counter
	contextLoads    metric.Int64Counter
	loginAttempts   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.tokensIssued, err = meter.Int64Counter(
		"auth.tokens.issued",
		metric.WithDescription("Tokens issued, by kind"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, err
	}
	if m.tokenRejections, err = meter.Int64Counter(
		"auth.tokens.rejected",
		metric.WithDescription("Tokens that failed validation, by reason"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, err
	}
	if m.rateLimited, err = meter.Int64Counter(
		"auth.requests.rate_limited",
		metric.WithDescription("Requests rejected by the rate limiter"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.contextLoads, err = meter.Int64Counter(
		"auth.security_context.loads",
		metric.WithDescription("Security context loads, by source"),
		metric.WithUnit("{load}"),
	); err != nil {
		return nil, err
	}
	if m.loginAttempts, err = meter.Int64Counter(
		"auth.logins",
		metric.WithDescription("Login attempts, by outcome"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// TokenIssued counts an issued token of kind "access" or "refresh".
func (m *Metrics) TokenIssued(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) TokenRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.tokenRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RateLimited counts a rejected request. route is the mux pattern, never the
// raw path.
func (m *Metrics) RateLimited(ctx context.Context, route string) {
	if m == nil {
		return
	}
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}

// ContextLoaded counts a security context load served from "cache" or "database".
func (m *Metrics) ContextLoaded(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.contextLoads.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) Login(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
