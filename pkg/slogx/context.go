package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// requestLog is the mutable logger slot of one request. With writes through
// it, so the request line emitted by HTTPMiddleware carries user_id and the
// other attributes learned while serving.
type requestLog struct {
	logger *slog.Logger
}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, &requestLog{logger: logger})
}

func FromContext(ctx context.Context) *slog.Logger {
	if rl, ok := ctx.Value(ctxKey{}).(*requestLog); ok && rl.logger != nil {
		return rl.logger
	}
	return slog.Default()
}

// With extends the context logger with args. Inside a request opened by
// HTTPMiddleware the request line sees them too; elsewhere a new slot is
// attached to the returned context.
func With(ctx context.Context, args ...any) context.Context {
	if rl, ok := ctx.Value(ctxKey{}).(*requestLog); ok && rl.logger != nil {
		rl.logger = rl.logger.With(args...)
		return ctx
	}
	return WithContext(ctx, slog.Default().With(args...))
}
