package audit_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/audit"
	"github.com/hollandstar/sportteams/internal/telemetry"
	"github.com/hollandstar/sportteams/pkg/httpx"
	"github.com/hollandstar/sportteams/pkg/slogx"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func capture() (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "test", Level: "debug", Format: "json", Output: &buf})
	return slogx.WithContext(context.Background(), logger), &buf
}

func TestAccessAndFailures(t *testing.T) {
	ctx, buf := capture()
	l := audit.New(nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	req.Header.Set("User-Agent", "test-agent")

	l.Access(ctx, req, httpx.Identity{UserID: 9, Role: "coach"})
	require.Contains(t, buf.String(), `"event":"api_access"`)
	require.Contains(t, buf.String(), `"user_id":9`)
	require.Contains(t, buf.String(), `"ip":"198.51.100.7"`)
	require.Contains(t, buf.String(), `"user_agent":"test-agent"`)

	buf.Reset()
	l.AuthFailure(ctx, req, errors.New("authentication failed: expired"))
	require.Contains(t, buf.String(), `"level":"WARN"`)
	require.Contains(t, buf.String(), `"reason":"authentication failed: expired"`)

	buf.Reset()
	l.RateLimited(ctx, req, "198.51.100.7:/v1/auth/me", httpx.Decision{Count: 31, Limit: 30, RetryAfter: time.Minute})
	require.Contains(t, buf.String(), `"event":"rate_limit_exceeded"`)
	require.Contains(t, buf.String(), `"limit":30`)
}

func rateLimitedRoutes(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "auth.requests.rate_limited" {
				continue
			}
			data, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range data.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("route"))
				out[v.AsString()] = dp.Value
			}
		}
	}
	return out
}

func TestRateLimitedMetricUsesRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := telemetry.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx, _ := capture()
	l := audit.New(m)
	d := httpx.Decision{Count: 101, Limit: 100, RetryAfter: time.Minute}

	for _, id := range []string{"1", "2", "3"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/players/"+id, nil)
		req.Pattern = "GET /v1/players/{id}"
		l.RateLimited(ctx, req, "198.51.100.7:"+req.URL.Path, d)
	}
	l.RateLimited(ctx, httptest.NewRequest(http.MethodGet, "/nowhere", nil), "198.51.100.7:/nowhere", d)

	require.Equal(t, map[string]int64{
		"GET /v1/players/{id}": 3,
		"unmatched":            1,
	}, rateLimitedRoutes(t, reader))
}

func TestLoginEventsDoNotLeakSecrets(t *testing.T) {
	ctx, buf := capture()
	l := audit.New(nil)

	l.LoginFailed(ctx, "coach@example.com", "203.0.113.9", "bad_password")
	l.TokenRejected(ctx, "replayed", "abc123")
	require.Contains(t, buf.String(), `"event":"login_failed"`)
	require.Contains(t, buf.String(), `"jti":"abc123"`)
	require.NotContains(t, buf.String(), "password\":")
}
