package jwtx_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hollandstar/sportteams/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer = "https://auth.sportteams.test"
)

var testKey = bytes.Repeat([]byte("k"), jwtx.MinKeySize)

func newClaims(now time.Time, ttl time.Duration) jwtx.Claims {
	return jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testIssuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-jwtx.NotBeforeSkew)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        "jti-1",
		},
		UserID:      7,
		ProfileID:   70,
		Role:        "coach",
		TeamScopes:  []int64{1, 2},
		Permissions: map[string]bool{"can_edit_team_players": true},
	}
}

func TestHS256RoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	h, err := jwtx.NewHS256(testKey, jwtx.Options{
		Issuer:   testIssuer,
		Audience: testIssuer,
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	require.Equal(t, "HS256", h.Alg())

	in := newClaims(now, time.Hour)
	tok, err := h.Sign(in)
	require.NoError(t, err)

	out, err := h.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, in.UserID, out.UserID)
	require.Equal(t, in.ProfileID, out.ProfileID)
	require.Equal(t, in.Role, out.Role)
	require.Equal(t, in.TeamScopes, out.TeamScopes)
	require.Equal(t, in.Permissions, out.Permissions)
	require.Equal(t, "jti-1", out.ID)
	require.False(t, out.IsRefresh())
	require.Equal(t, time.Hour, out.ExpiresIn(now))
}

func TestHS256Failures(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := now
	opts := jwtx.Options{Issuer: testIssuer, Audience: testIssuer, Now: func() time.Time { return clock }}

	h, err := jwtx.NewHS256(testKey, opts)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		tok, err := h.Sign(newClaims(now, time.Minute))
		require.NoError(t, err)

		clock = now.Add(2 * time.Minute)
		t.Cleanup(func() { clock = now })

		_, err = h.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := jwtx.NewHS256(bytes.Repeat([]byte("x"), jwtx.MinKeySize), opts)
		require.NoError(t, err)

		tok, err := other.Sign(newClaims(now, time.Hour))
		require.NoError(t, err)

		_, err = h.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		c := newClaims(now, time.Hour)
		c.Issuer = "https://evil.test"
		tok, err := h.Sign(c)
		require.NoError(t, err)

		_, err = h.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("audience mismatch", func(t *testing.T) {
		c := newClaims(now, time.Hour)
		c.Audience = jwt.ClaimStrings{"https://other.test"}
		tok, err := h.Sign(c)
		require.NoError(t, err)

		_, err = h.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("missing exp", func(t *testing.T) {
		c := newClaims(now, time.Hour)
		c.ExpiresAt = nil
		tok, err := h.Sign(c)
		require.NoError(t, err)

		_, err = h.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, newClaims(now, time.Hour)).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = h.Verify(tok)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := h.Verify("not-a-jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestNewHS256RejectsWeakKey(t *testing.T) {
	_, err := jwtx.NewHS256([]byte("short"), jwtx.Options{})
	require.ErrorIs(t, err, jwtx.ErrWeakKey)
}
