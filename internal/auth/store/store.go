package store

import (
	"context"
	"errors"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so a Tx-scoped Store can hand out the same repositories.
type Store interface {
	Users() Users
	Profiles() Profiles
	Teams() Teams
	Players() Players
	Memberships() Memberships
	RefreshTokens() RefreshTokens
	SecurityContexts() SecurityContexts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. The transaction is rolled
	// back when fn returns an error and committed otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	// GetUserByEmail is used during login. Emails are matched case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a user and returns its id. A duplicate email
	// yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) (int64, error)
}

type Profiles interface {
	// GetProfileByUserID returns the user's profile whether or not it is active.
	GetProfileByUserID(ctx context.Context, userID int64) (domain.Profile, error)

	CreateProfile(ctx context.Context, p domain.Profile) (int64, error)

	// TouchLastLogin records a successful login.
	TouchLastLogin(ctx context.Context, profileID int64, at time.Time) error
}

type Teams interface {
	GetTeam(ctx context.Context, id int64) (domain.Team, error)
	CreateTeam(ctx context.Context, name string) (int64, error)
}

type Players interface {
	GetPlayer(ctx context.Context, id int64) (domain.Player, error)

	// GetActivePlayerByProfileID returns the active roster entry linked to a profile.
	GetActivePlayerByProfileID(ctx context.Context, profileID int64) (domain.Player, error)

	// ListPlayers returns the players matching f ordered by name. The filter
	// is compiled into a parameterised query.
	ListPlayers(ctx context.Context, f domain.PlayerFilter) ([]domain.Player, error)

	CreatePlayer(ctx context.Context, p domain.Player) (int64, error)
}

type Memberships interface {
	// ListActiveMemberships returns the user's active team memberships.
	ListActiveMemberships(ctx context.Context, userID int64) ([]domain.Membership, error)

	// CreateMembership inserts a membership unless one already exists for
	// (user_id, team_id). It reports whether a row was inserted.
	CreateMembership(ctx context.Context, m domain.Membership) (bool, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the row keyed by sha256(jti), revoked or not.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips is_revoked on a live row. It reports false
	// when the row was already revoked, which makes concurrent rotations of
	// the same token resolve to exactly one winner.
	RevokeRefreshToken(ctx context.Context, hash string, at time.Time) (bool, error)

	// RevokeAllUserRefreshTokens revokes every live refresh token of a user.
	RevokeAllUserRefreshTokens(ctx context.Context, userID int64, at time.Time) (int64, error)

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type SecurityContexts interface {
	// UpsertSecurityContext writes the durable copy keyed by user_id.
	UpsertSecurityContext(ctx context.Context, sc domain.StoredSecurityContext) error

	// GetSecurityContext returns the persisted copy, expired or not.
	GetSecurityContext(ctx context.Context, userID int64) (domain.StoredSecurityContext, error)

	// DeleteExpiredSecurityContexts is housekeeping.
	DeleteExpiredSecurityContexts(ctx context.Context, now time.Time) (int64, error)
}
