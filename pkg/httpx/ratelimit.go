package httpx

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hollandstar/sportteams/pkg/kvstore"
	"github.com/hollandstar/sportteams/pkg/slogx"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Count      int // requests seen in the current window, including this one
	Limit      int
	RetryAfter time.Duration
}

// Remaining returns how many requests are left in the window.
func (d Decision) Remaining() int { return max(d.Limit-d.Count, 0) }

// Limiter counts requests per key.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// RateLimitRule applies Limit to every path starting with Prefix.
type RateLimitRule struct {
	Prefix string
	Limit  int
}

// RateLimitPolicy maps request paths to per-window limits. The longest
// matching prefix wins; unmatched paths get Default.
type RateLimitPolicy struct {
	Rules   []RateLimitRule
	Default int
	Window  time.Duration
}

// DefaultRateLimitPolicy returns the per-minute limits of the service.
func DefaultRateLimitPolicy() RateLimitPolicy {
	return RateLimitPolicy{
		Rules: []RateLimitRule{
			{Prefix: "/v1/auth/login", Limit: 5},
			{Prefix: "/v1/auth/refresh", Limit: 10},
			{Prefix: "/v1/players", Limit: 100},
			{Prefix: "/v1/teams", Limit: 100},
			{Prefix: "/v1/evaluations", Limit: 50},
		},
		Default: 30,
		Window:  time.Minute,
	}
}

func (p RateLimitPolicy) LimitFor(path string) int {
	limit, best := p.Default, -1
	for _, rule := range p.Rules {
		if strings.HasPrefix(path, rule.Prefix) && len(rule.Prefix) > best {
			limit, best = rule.Limit, len(rule.Prefix)
		}
	}
	return limit
}

// RateLimitMiddleware limits requests per (client ip, path). The client ip
// comes from ClientIP, so forwarded headers only count behind a trusted
// proxy. Limiter errors let the request through.
func RateLimitMiddleware(l Limiter, p RateLimitPolicy, ev Events) Middleware {
	ev = eventsOrNop(ev)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := ClientIP(r) + ":" + r.URL.Path
			limit := p.LimitFor(r.URL.Path)

			d, err := l.Allow(ctx, key, limit, p.Window)
			if err != nil {
				log.Warn("rate limit check failed, allowing request", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining()))

			if !d.Allowed {
				retryAfter := max(int(d.RetryAfter.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				ev.RateLimited(ctx, r, key, d)
				WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
					"Too many requests. Please try again in "+strconv.Itoa(retryAfter)+" seconds.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// FixedWindowLimiter counts requests in a shared kv store. The counter's TTL
// is set when the window's first request creates it, so windows are fixed
// rather than sliding and bursts straddling a boundary may reach twice the
// limit.
type FixedWindowLimiter struct {
	Store kvstore.Store
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	n, err := l.Store.Incr(ctx, "rate_limit:"+key, window)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Allowed: n <= int64(limit), Count: int(n), Limit: limit}
	if !d.Allowed {
		d.RetryAfter = window
	}
	return d, nil
}

// TokenBucketLimiter keeps one in-process token bucket per key, refilled at
// limit/window with a burst of limit.
type TokenBucketLimiter struct {
	Now func() time.Time

	limiters    sync.Map // map[string]*rate.Limiter
	mu          sync.Mutex
	lastCleanup time.Time
}

func (l *TokenBucketLimiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *TokenBucketLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := l.now()
	limiter := l.getLimiter(key, limit, window, now)

	d := Decision{Limit: limit}
	if limiter.AllowN(now, 1) {
		d.Allowed = true
		d.Count = limit - int(limiter.TokensAt(now))
		return d, nil
	}

	// Calculate retry-after (when the next token will be available)
	reservation := limiter.ReserveN(now, 1)
	d.RetryAfter = reservation.DelayFrom(now)
	reservation.CancelAt(now) // Don't actually consume the reservation
	d.Count = limit + 1
	return d, nil
}

// getLimiter retrieves or creates the limiter for key.
func (l *TokenBucketLimiter) getLimiter(key string, limit int, window time.Duration, now time.Time) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	l.maybeCleanup(now)

	every := rate.Every(window / time.Duration(max(limit, 1)))
	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(every, limit))
	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose buckets are full again, which means they
// have been idle long enough to be recreated without changing behaviour.
func (l *TokenBucketLimiter) maybeCleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastCleanup.IsZero() {
		l.lastCleanup = now
		return
	}
	if now.Sub(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = now

	l.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			l.limiters.Delete(key)
		}
		return true
	})
}
