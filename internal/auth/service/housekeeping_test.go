package service

import (
	"context"
	"testing"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/auth/store"
	"github.com/hollandstar/sportteams/internal/testutil"
	"github.com/hollandstar/sportteams/pkg/cryptox"
	"github.com/hollandstar/sportteams/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	coach := testutil.Seed(t, h.store, "coach@example.com", "pw", domain.RoleCoach)
	_, err := h.contexts.Load(ctx, coach.UserID)
	require.NoError(t, err)

	refresh, err := h.tokens.IssueRefresh(ctx, coach.UserID)
	require.NoError(t, err)
	c, err := h.tokens.open(ctx, refresh)
	require.NoError(t, err)
	require.Positive(t, h.kv.Len())

	hk := NewHousekeepingService(h.store, h.kv, slogx.Discard(), time.Minute)
	hk.Now = h.clock.Now

	hk.cleanup(ctx)
	_, err = h.contexts.Persisted(ctx, coach.UserID)
	require.NoError(t, err, "nothing has expired yet")

	h.clock.Advance(31 * 24 * time.Hour)
	hk.cleanup(ctx)

	_, err = h.contexts.Persisted(ctx, coach.UserID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(c.ID))
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Zero(t, h.kv.Len())
}

func TestHousekeepingLifecycle(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	hk := NewHousekeepingService(h.store, nil, slogx.Discard(), 0)
	require.Equal(t, time.Hour, hk.Interval)

	hk.Start()
	hk.Stop()
}
