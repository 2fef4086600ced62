package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/testutil"
	"github.com/hollandstar/sportteams/pkg/cryptox"
	"github.com/hollandstar/sportteams/pkg/jwtx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coachContext() domain.SecurityContext {
	return domain.SecurityContext{
		UserID:      7,
		ProfileID:   70,
		Role:        domain.RoleCoach,
		TeamScopes:  []int64{3, 4},
		Permissions: domain.RoleCoach.DefaultPermissions(),
	}
}

func requireRejected(t *testing.T, err error, reason string) {
	t.Helper()
	require.ErrorIs(t, err, ErrAuthentication)
	require.Equal(t, reason, ReasonOf(err))
}

func TestIssueValidateRoundTrip(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	sc := coachContext()
	token, err := h.tokens.Issue(ctx, AccessClaims(sc))
	require.NoError(t, err)

	c, err := h.tokens.ValidateAccess(ctx, token)
	require.NoError(t, err)
	require.Equal(t, sc.UserID, c.UserID)
	require.Equal(t, sc.ProfileID, c.ProfileID)
	require.Equal(t, "coach", c.Role)
	require.Equal(t, sc.TeamScopes, c.TeamScopes)
	require.Equal(t, map[string]bool(sc.Permissions), c.Permissions)
	require.Len(t, c.ID, 2*cryptox.TokenSize128)
	require.Equal(t, testIssuer, c.Issuer)
	require.Equal(t, jwt.ClaimStrings{testIssuer}, c.Audience)
	require.Equal(t, testutil.Epoch, c.IssuedAt.Time.UTC())
	require.Equal(t, testutil.Epoch.Add(time.Hour), c.ExpiresAt.Time.UTC())
	require.Equal(t, testutil.Epoch.Add(-jwtx.NotBeforeSkew), c.NotBefore.Time.UTC())

	id, err := h.tokens.ValidateBearer(ctx, token)
	require.NoError(t, err)
	require.Equal(t, c.ID, id.TokenID)
	require.Equal(t, "coach", id.Role)
}

func TestValidateAccessFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("expired", func(t *testing.T) {
		h := newHarness(t)
		token, err := h.tokens.Issue(ctx, AccessClaims(coachContext()))
		require.NoError(t, err)

		h.clock.Advance(time.Hour - time.Second)
		_, err = h.tokens.ValidateAccess(ctx, token)
		require.NoError(t, err)

		h.clock.Advance(2 * time.Second)
		_, err = h.tokens.ValidateAccess(ctx, token)
		requireRejected(t, err, ReasonExpired)
	})

	t.Run("revoked before exp", func(t *testing.T) {
		h := newHarness(t)
		token, err := h.tokens.Issue(ctx, AccessClaims(coachContext()))
		require.NoError(t, err)
		c, err := h.tokens.ValidateAccess(ctx, token)
		require.NoError(t, err)

		require.NoError(t, h.tokens.Revoke(ctx, c.ID))
		_, err = h.tokens.ValidateAccess(ctx, token)
		requireRejected(t, err, ReasonRevoked)
	})

	t.Run("garbage", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.tokens.ValidateAccess(ctx, "not-a-token")
		requireRejected(t, err, ReasonMalformed)
	})

	t.Run("sealed with another key", func(t *testing.T) {
		h := newHarness(t)
		token, err := h.tokens.Issue(ctx, AccessClaims(coachContext()))
		require.NoError(t, err)

		other, err := cryptox.NewSealer([]byte("00000000000000000000000000000000"))
		require.NoError(t, err)
		h.tokens.Sealer = other
		_, err = h.tokens.ValidateAccess(ctx, token)
		requireRejected(t, err, ReasonMalformed)
	})

	t.Run("signed with another key", func(t *testing.T) {
		h := newHarness(t)
		forger, err := jwtx.NewHS256([]byte("ffffffffffffffffffffffffffffffff"), jwtx.Options{Now: h.clock.Now})
		require.NoError(t, err)

		good := h.tokens.Signer
		h.tokens.Signer = forger
		token, err := h.tokens.Issue(ctx, AccessClaims(coachContext()))
		require.NoError(t, err)

		h.tokens.Signer = good
		_, err = h.tokens.ValidateAccess(ctx, token)
		requireRejected(t, err, ReasonSignature)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		h := newHarness(t)
		h.tokens.Issuer = "https://elsewhere.example.test"
		token, err := h.tokens.Issue(ctx, AccessClaims(coachContext()))
		require.NoError(t, err)

		h.tokens.Issuer = testIssuer
		_, err = h.tokens.ValidateAccess(ctx, token)
		require.ErrorIs(t, err, ErrAuthentication)
		require.Contains(t, []string{ReasonAudience, ReasonIssuer}, ReasonOf(err))
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		h := newHarness(t)
		refresh, err := h.tokens.IssueRefresh(ctx, 7)
		require.NoError(t, err)
		_, err = h.tokens.ValidateAccess(ctx, refresh)
		requireRejected(t, err, ReasonWrongType)
	})

	t.Run("failures are audited", func(t *testing.T) {
		h := newHarness(t)
		_, _ = h.tokens.ValidateAccess(ctx, "")
		require.Equal(t, []string{ReasonMalformed}, h.audit.rejects)
	})
}

func TestAccessTokenReplay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("access tokens are reusable by default", func(t *testing.T) {
		h := newHarness(t)
		token, err := h.tokens.Issue(ctx, AccessClaims(coachContext()))
		require.NoError(t, err)

		for range 3 {
			_, err = h.tokens.ValidateAccess(ctx, token)
			require.NoError(t, err)
		}
	})

	t.Run("strict mode rejects the second use inside the window", func(t *testing.T) {
		h := newHarness(t)
		h.tokens.StrictReplay = true
		token, err := h.tokens.Issue(ctx, AccessClaims(coachContext()))
		require.NoError(t, err)

		_, err = h.tokens.ValidateAccess(ctx, token)
		require.NoError(t, err)
		_, err = h.tokens.ValidateAccess(ctx, token)
		requireRejected(t, err, ReasonReplayed)

		h.clock.Advance(DefaultReplayWindow + time.Second)
		_, err = h.tokens.ValidateAccess(ctx, token)
		require.NoError(t, err)
	})
}

func TestPlainSealerFallback(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	plain, err := cryptox.NewSealer(nil)
	require.NoError(t, err)
	require.False(t, plain.Encrypting())
	h.tokens.Sealer = plain

	token, err := h.tokens.Issue(ctx, AccessClaims(coachContext()))
	require.NoError(t, err)
	_, err = h.tokens.ValidateAccess(ctx, token)
	require.NoError(t, err)
}

func TestRotateRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setup := func(t *testing.T) (*harness, testutil.Account, domain.TokenPair) {
		h := newHarness(t)
		acct := testutil.Seed(t, h.store, "coach@example.com", "pw", domain.RoleCoach)
		sc, err := h.contexts.Load(ctx, acct.UserID)
		require.NoError(t, err)
		pair, err := h.tokens.IssuePair(ctx, sc)
		require.NoError(t, err)
		require.Equal(t, "Bearer", pair.TokenType)
		require.Equal(t, int64(3600), pair.ExpiresIn)
		return h, acct, pair
	}

	t.Run("refresh token is persisted by hash", func(t *testing.T) {
		h, acct, pair := setup(t)
		c, err := h.tokens.open(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.Len(t, c.ID, 2*cryptox.TokenSize256)

		row, err := h.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(c.ID))
		require.NoError(t, err)
		require.Equal(t, acct.UserID, row.UserID)
		require.False(t, row.Revoked)
		require.Equal(t, testutil.Epoch.Add(jwtx.DefaultRefreshTokenTTL), row.ExpiresAt)
	})

	t.Run("single use", func(t *testing.T) {
		h, acct, pair := setup(t)

		next, err := h.tokens.RotateRefresh(ctx, pair.RefreshToken, h.contexts)
		require.NoError(t, err)
		require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

		c, err := h.tokens.ValidateAccess(ctx, next.AccessToken)
		require.NoError(t, err)
		require.Equal(t, acct.UserID, c.UserID)

		_, err = h.tokens.RotateRefresh(ctx, pair.RefreshToken, h.contexts)
		require.ErrorIs(t, err, ErrAuthentication)

		h.clock.Advance(DefaultReplayWindow + time.Second)
		_, err = h.tokens.RotateRefresh(ctx, pair.RefreshToken, h.contexts)
		requireRejected(t, err, ReasonRevoked)
	})

	t.Run("a revoked row wins over a live marker", func(t *testing.T) {
		h, _, pair := setup(t)
		c, err := h.tokens.open(ctx, pair.RefreshToken)
		require.NoError(t, err)

		won, err := h.store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(c.ID), h.clock.Now())
		require.NoError(t, err)
		require.True(t, won)

		_, err = h.tokens.RotateRefresh(ctx, pair.RefreshToken, h.contexts)
		requireRejected(t, err, ReasonRevoked)
	})

	t.Run("access token cannot rotate", func(t *testing.T) {
		h, _, pair := setup(t)
		_, err := h.tokens.RotateRefresh(ctx, pair.AccessToken, h.contexts)
		requireRejected(t, err, ReasonWrongType)
	})

	t.Run("concurrent rotations have one winner", func(t *testing.T) {
		h, _, pair := setup(t)

		const n = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := h.tokens.RotateRefresh(ctx, pair.RefreshToken, h.contexts); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, ErrAuthentication)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		h, _, pair := setup(t)
		h.clock.Advance(jwtx.DefaultRefreshTokenTTL + time.Second)
		_, err := h.tokens.RotateRefresh(ctx, pair.RefreshToken, h.contexts)
		requireRejected(t, err, ReasonExpired)
	})
}
