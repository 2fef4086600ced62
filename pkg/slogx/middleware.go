package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hollandstar/sportteams/pkg/idx"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 64
)

// RequestAttr derives one log attribute from an incoming request.
type RequestAttr func(*http.Request) slog.Attr

// HTTPMiddleware opens a log scope per request and writes one "request"
// line when the handler returns. The line carries req_id, method, path and
// the extra attrs, plus whatever handlers added through With (the bearer
// gate adds user_id). Client supplied request ids are kept only when short.
func HTTPMiddleware(base *slog.Logger, attrs ...RequestAttr) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = idx.New().String()
			}
			w.Header().Set(requestIDHeader, reqID)

			args := []any{"req_id", reqID, "method", r.Method, "path", r.URL.Path}
			for _, attr := range attrs {
				args = append(args, attr(r))
			}
			ctx := WithContext(r.Context(), base.With(args...))

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			FromContext(ctx).Log(ctx, level, "request",
				"status", rec.status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter

	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}
