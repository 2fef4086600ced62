package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hollandstar/sportteams/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		require.Equal(t, want, slogx.ParseLevel(in), in)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	require.Equal(t, slog.Default(), slogx.FromContext(context.Background()))
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestHTTPMiddlewareLogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "test", Format: "json", Output: &buf})
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))) })

	clientIP := func(*http.Request) slog.Attr { return slog.String("client_ip", "198.51.100.9") }
	h := slogx.HTTPMiddleware(logger, clientIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := slogx.With(r.Context(), "user_id", 42)
		slogx.FromContext(ctx).Info("handled")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	require.Equal(t, "handled", lines[0]["msg"])
	require.Equal(t, "req-123", lines[0]["req_id"])

	entry := lines[1]
	require.Equal(t, "request", entry["msg"])
	require.Equal(t, "req-123", entry["req_id"])
	require.Equal(t, "/v1/auth/me", entry["path"])
	require.Equal(t, "198.51.100.9", entry["client_ip"])
	require.EqualValues(t, 42, entry["user_id"], "attributes added while serving reach the request line")
	require.EqualValues(t, http.StatusTeapot, entry["status"])
	require.EqualValues(t, len("short and stout"), entry["bytes"])
}

func TestHTTPMiddlewareRequestIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "test", Format: "json", Output: &buf})
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))) })

	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 200))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	got := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, got)
	require.Less(t, len(got), 200, "oversized ids are replaced")

	entry := decodeLines(t, &buf)[0]
	require.Equal(t, "ERROR", entry["level"])
	require.Equal(t, got, entry["req_id"])
}

func TestWithOutsideRequest(t *testing.T) {
	ctx := slogx.With(context.Background(), "job", "housekeeping")
	require.NotSame(t, slog.Default(), slogx.FromContext(ctx))
}
