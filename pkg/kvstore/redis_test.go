package kvstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hollandstar/sportteams/pkg/kvstore"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *kvstore.Redis {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	r, err := kvstore.OpenRedis(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()), "test:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisStore(t *testing.T) {
	r := setupRedis(t)
	ctx := context.Background()

	t.Run("put get has forget", func(t *testing.T) {
		require.NoError(t, r.Put(ctx, "k", []byte("v"), time.Minute))

		v, ok, err := r.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("v"), v)

		require.NoError(t, r.Forget(ctx, "k"))
		ok, err = r.Has(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)

		_, ok, err = r.Get(ctx, "k")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		require.NoError(t, r.Put(ctx, "short", []byte("v"), 200*time.Millisecond))
		require.Eventually(t, func() bool {
			ok, err := r.Has(ctx, "short")
			return err == nil && !ok
		}, 3*time.Second, 50*time.Millisecond)
	})

	t.Run("put if absent", func(t *testing.T) {
		ok, err := r.PutIfAbsent(ctx, "once", []byte("used"), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = r.PutIfAbsent(ctx, "once", []byte("used"), time.Minute)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("incr", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			n, err := r.Incr(ctx, "ctr", time.Minute)
			require.NoError(t, err)
			require.Equal(t, want, n)
		}

		require.NoError(t, r.Put(ctx, "text", []byte("valid"), time.Minute))
		_, err := r.Incr(ctx, "text", time.Minute)
		require.ErrorIs(t, err, kvstore.ErrNotInteger)
	})
}
