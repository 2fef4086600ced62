package testutil

import (
	"context"
	"testing"

	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/auth/store"
	"github.com/hollandstar/sportteams/internal/auth/store/drivers/sqlite"
	"github.com/hollandstar/sportteams/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

// Pepper is the password pepper used by Seed.
const Pepper = "test-pepper"

// NewStore returns a migrated in-memory SQLite store closed at test end.
func NewStore(t testing.TB) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

// Account is a seeded user with its profile.
type Account struct {
	UserID    int64
	ProfileID int64
	Email     string
	Password  string
	Role      domain.Role
}

// Seed creates a user and an active profile with the given role. The
// password is hashed with Pepper.
func Seed(t testing.TB, s store.Store, email, password string, role domain.Role) Account {
	t.Helper()
	ctx := context.Background()

	hash, err := cryptox.PasswordHasher{Pepper: Pepper}.Hash(password)
	require.NoError(t, err)

	uid, err := s.Users().CreateUser(ctx, domain.User{Email: email, PasswordHash: hash, CreatedAt: Epoch, UpdatedAt: Epoch})
	require.NoError(t, err)

	pid, err := s.Profiles().CreateProfile(ctx, domain.Profile{
		UserID:    uid,
		Name:      email,
		Role:      role,
		IsActive:  true,
		CreatedAt: Epoch,
		UpdatedAt: Epoch,
	})
	require.NoError(t, err)

	return Account{UserID: uid, ProfileID: pid, Email: email, Password: password, Role: role}
}

func Team(t testing.TB, s store.Store, name string) int64 {
	t.Helper()
	id, err := s.Teams().CreateTeam(context.Background(), name)
	require.NoError(t, err)
	return id
}

// Player creates an active roster entry. profileID and teamID may be zero.
func Player(t testing.TB, s store.Store, name string, profileID, teamID int64) int64 {
	t.Helper()

	p := domain.Player{Name: name, IsActive: true}
	if profileID != 0 {
		p.ProfileID = &profileID
	}
	if teamID != 0 {
		p.TeamID = &teamID
	}
	id, err := s.Players().CreatePlayer(context.Background(), p)
	require.NoError(t, err)
	return id
}

// Member grants the account an active membership of teamID. overrides may
// be nil.
func Member(t testing.TB, s store.Store, a Account, teamID int64, overrides domain.Permissions) {
	t.Helper()

	if overrides == nil {
		overrides = domain.Permissions{}
	}
	created, err := s.Memberships().CreateMembership(context.Background(), domain.Membership{
		UserID:      a.UserID,
		TeamID:      teamID,
		ProfileID:   a.ProfileID,
		Role:        a.Role,
		Permissions: overrides,
		IsActive:    true,
		GrantedAt:   Epoch,
	})
	require.NoError(t, err)
	require.True(t, created)
}
