// Package storetest holds the behaviour every store driver must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/auth/store"
	"github.com/hollandstar/sportteams/pkg/idx"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// Run exercises s, which must be freshly migrated and empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	coachUser := mustUser(t, s, "Coach@Example.com")
	playerUser := mustUser(t, s, "player@example.com")
	coachProfile := mustProfile(t, s, coachUser, domain.RoleHeadCoach)
	playerProfile := mustProfile(t, s, playerUser, domain.RolePlayer)

	teamA, err := s.Teams().CreateTeam(ctx, "Lions")
	require.NoError(t, err)
	teamB, err := s.Teams().CreateTeam(ctx, "Tigers")
	require.NoError(t, err)

	t.Run("users", func(t *testing.T) {
		u, err := s.Users().GetUserByEmail(ctx, " COACH@example.com ")
		require.NoError(t, err)
		require.Equal(t, coachUser, u.ID)
		require.Equal(t, "coach@example.com", u.Email)
		require.Equal(t, epoch, u.CreatedAt)

		_, err = s.Users().CreateUser(ctx, domain.User{Email: "coach@example.com", PasswordHash: "x", CreatedAt: epoch})
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		_, err = s.Users().GetUserByID(ctx, 999_999)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("profiles", func(t *testing.T) {
		p, err := s.Profiles().GetProfileByUserID(ctx, coachUser)
		require.NoError(t, err)
		require.Equal(t, coachProfile, p.ID)
		require.Equal(t, domain.RoleHeadCoach, p.Role)
		require.True(t, p.IsActive)
		require.Nil(t, p.LastLoginAt)

		at := epoch.Add(time.Hour)
		require.NoError(t, s.Profiles().TouchLastLogin(ctx, p.ID, at))
		p, err = s.Profiles().GetProfileByUserID(ctx, coachUser)
		require.NoError(t, err)
		require.NotNil(t, p.LastLoginAt)
		require.Equal(t, at, *p.LastLoginAt)
	})

	t.Run("memberships", func(t *testing.T) {
		m := domain.Membership{
			UserID: coachUser, TeamID: teamA, ProfileID: coachProfile, Role: domain.RoleCoach,
			Permissions: domain.Permissions{domain.PermEditTeamPlayers: false},
			IsActive:    true, GrantedAt: epoch,
		}
		created, err := s.Memberships().CreateMembership(ctx, m)
		require.NoError(t, err)
		require.True(t, created)

		created, err = s.Memberships().CreateMembership(ctx, m)
		require.NoError(t, err)
		require.False(t, created, "second insert for the same (user, team) is a no-op")

		inactive := m
		inactive.TeamID = teamB
		inactive.IsActive = false
		_, err = s.Memberships().CreateMembership(ctx, inactive)
		require.NoError(t, err)

		ms, err := s.Memberships().ListActiveMemberships(ctx, coachUser)
		require.NoError(t, err)
		require.Len(t, ms, 1)
		require.Equal(t, teamA, ms[0].TeamID)
		require.Equal(t, domain.RoleCoach, ms[0].Role)
		require.Equal(t, domain.Permissions{domain.PermEditTeamPlayers: false}, ms[0].Permissions)
	})

	t.Run("players", func(t *testing.T) {
		self := mustPlayer(t, s, domain.Player{Name: "Anna", ProfileID: &playerProfile, TeamID: &teamA, IsActive: true})
		mate := mustPlayer(t, s, domain.Player{Name: "Bea", TeamID: &teamA, IsActive: true})
		other := mustPlayer(t, s, domain.Player{Name: "Cleo", TeamID: &teamB, IsActive: true})
		gone := mustPlayer(t, s, domain.Player{Name: "Dana", TeamID: &teamA, IsActive: false})

		p, err := s.Players().GetActivePlayerByProfileID(ctx, playerProfile)
		require.NoError(t, err)
		require.Equal(t, self, p.ID)
		require.Equal(t, teamA, *p.TeamID)

		_, err = s.Players().GetActivePlayerByProfileID(ctx, coachProfile)
		require.ErrorIs(t, err, store.ErrNotFound)

		tests := []struct {
			name string
			f    domain.PlayerFilter
			want []int64
		}{
			{"all active", domain.PlayerFilter{Kind: domain.FilterAllActive}, []int64{self, mate, other}},
			{"self or teams", domain.PlayerFilter{Kind: domain.FilterSelfOrTeams, ProfileID: playerProfile, TeamIDs: []int64{teamA}}, []int64{self, mate, gone}},
			{"self only", domain.PlayerFilter{Kind: domain.FilterSelfOrTeams, ProfileID: playerProfile}, []int64{self}},
			{"teams only", domain.PlayerFilter{Kind: domain.FilterTeamsOnly, TeamIDs: []int64{teamA, teamB}}, []int64{self, mate, other}},
			{"teams only empty", domain.PlayerFilter{Kind: domain.FilterTeamsOnly}, []int64{}},
			{"none", domain.PlayerFilter{Kind: domain.FilterNone}, []int64{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				players, err := s.Players().ListPlayers(ctx, tt.f)
				require.NoError(t, err)
				ids := make([]int64, 0, len(players))
				for _, p := range players {
					require.True(t, tt.f.Match(p), "store and in-memory predicate agree for %s", p.Name)
					ids = append(ids, p.ID)
				}
				require.Equal(t, tt.want, ids)
			})
		}
	})

	t.Run("refresh tokens", func(t *testing.T) {
		rt := domain.RefreshToken{
			ID: idx.New().String(), UserID: playerUser, TokenHash: "hash-1",
			ExpiresAt: epoch.Add(time.Hour), CreatedAt: epoch,
		}
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rt))
		require.ErrorIs(t, s.RefreshTokens().CreateRefreshToken(ctx, rt), store.ErrAlreadyExists)

		got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
		require.NoError(t, err)
		require.Equal(t, rt.ID, got.ID)
		require.False(t, got.Revoked)

		ok, err := s.RefreshTokens().RevokeRefreshToken(ctx, "hash-1", epoch)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.RefreshTokens().RevokeRefreshToken(ctx, "hash-1", epoch)
		require.NoError(t, err)
		require.False(t, ok, "revocation only wins once")

		for i, h := range []string{"hash-2", "hash-3"} {
			require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
				ID: idx.New().String(), UserID: playerUser, TokenHash: h,
				ExpiresAt: epoch.Add(time.Duration(i+2) * time.Hour), CreatedAt: epoch,
			}))
		}
		n, err := s.RefreshTokens().RevokeAllUserRefreshTokens(ctx, playerUser, epoch)
		require.NoError(t, err)
		require.Equal(t, int64(2), n)

		n, err = s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, epoch.Add(2*time.Hour))
		require.NoError(t, err)
		require.Equal(t, int64(2), n)

		_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-3")
		require.NoError(t, err)
	})

	t.Run("security contexts", func(t *testing.T) {
		sc := domain.StoredSecurityContext{
			SecurityContext: domain.SecurityContext{
				UserID: coachUser, ProfileID: coachProfile, Role: domain.RoleHeadCoach,
				TeamScopes:  []int64{teamA},
				Permissions: domain.RoleHeadCoach.DefaultPermissions(),
			},
			LastActivity: epoch,
			ExpiresAt:    epoch.Add(8 * time.Hour),
		}
		require.NoError(t, s.SecurityContexts().UpsertSecurityContext(ctx, sc))

		sc.TeamScopes = []int64{teamA, teamB}
		sc.LastActivity = epoch.Add(time.Minute)
		require.NoError(t, s.SecurityContexts().UpsertSecurityContext(ctx, sc))

		got, err := s.SecurityContexts().GetSecurityContext(ctx, coachUser)
		require.NoError(t, err)
		require.Equal(t, sc, got)

		n, err := s.SecurityContexts().DeleteExpiredSecurityContexts(ctx, epoch.Add(9*time.Hour))
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
		_, err = s.SecurityContexts().GetSecurityContext(ctx, coachUser)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("transactions", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.WithTx(ctx, func(tx store.Tx) error {
			if _, err := tx.Users().CreateUser(ctx, domain.User{Email: "ghost@example.com", PasswordHash: "x", CreatedAt: epoch}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)
		_, err = s.Users().GetUserByEmail(ctx, "ghost@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)

		var committed int64
		require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
			var err error
			committed, err = tx.Teams().CreateTeam(ctx, "Committed")
			return err
		}))

		team, err := s.Teams().GetTeam(ctx, committed)
		require.NoError(t, err)
		require.Equal(t, "Committed", team.Name)
	})
}

func mustUser(t *testing.T, s store.Store, email string) int64 {
	t.Helper()
	id, err := s.Users().CreateUser(context.Background(), domain.User{Email: email, PasswordHash: "hash", CreatedAt: epoch})
	require.NoError(t, err)
	return id
}

func mustProfile(t *testing.T, s store.Store, userID int64, role domain.Role) int64 {
	t.Helper()
	id, err := s.Profiles().CreateProfile(context.Background(), domain.Profile{
		UserID: userID, Name: role.String(), Role: role, IsActive: true, CreatedAt: epoch,
	})
	require.NoError(t, err)
	return id
}

func mustPlayer(t *testing.T, s store.Store, p domain.Player) int64 {
	t.Helper()
	id, err := s.Players().CreatePlayer(context.Background(), p)
	require.NoError(t, err)
	return id
}
