package httpx

import (
	"context"
	"net/http"
)

// Events receives the security events raised by the gate middlewares.
type Events interface {
	// Access is emitted once per authenticated request.
	Access(ctx context.Context, r *http.Request, id Identity)

	// AuthFailure is emitted when a request is rejected as unauthenticated.
	AuthFailure(ctx context.Context, r *http.Request, err error)

	// RateLimited is emitted when a request exceeds its limit.
	RateLimited(ctx context.Context, r *http.Request, key string, d Decision)
}

type nopEvents struct{}

func (nopEvents) Access(context.Context, *http.Request, Identity)              {}
func (nopEvents) AuthFailure(context.Context, *http.Request, error)            {}
func (nopEvents) RateLimited(context.Context, *http.Request, string, Decision) {}

func eventsOrNop(ev Events) Events {
	if ev == nil {
		return nopEvents{}
	}
	return ev
}
