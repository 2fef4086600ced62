// Package kvstore is an ephemeral key-value store with per-key TTLs. It backs
// token revocation markers, replay markers, rate limit counters and the
// security context cache. Entries are disposable: losing one costs a
// recomputation, never correctness.
package kvstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotInteger is returned by Incr when the key holds a non-counter value.
	ErrNotInteger = errors.New("kvstore: value is not an integer")
)

// Store is implemented by Memory and Redis.
//
// A ttl <= 0 on a write means the entry would already be expired; writes
// with such a ttl are no-ops (and PutIfAbsent reports false).
type Store interface {
	// Get returns the value for key and whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key for ttl, replacing any previous entry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// PutIfAbsent stores value only when key is absent or expired and reports
	// whether it did. The check and write are atomic.
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Has reports whether key is present and unexpired.
	Has(ctx context.Context, key string) (bool, error)

	// Forget removes key. Removing a missing key is not an error.
	Forget(ctx context.Context, key string) error

	// Incr atomically increments the counter at key and returns the new
	// value. The ttl is applied only when the increment creates the counter,
	// so a counter expires ttl after its first hit.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
