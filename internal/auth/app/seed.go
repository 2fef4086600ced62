package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/auth/store"
	"github.com/hollandstar/sportteams/pkg/cryptox"
)

// SeedAccount is one demo login created by Seed.
type SeedAccount struct {
	Email string
	Name  string
	Role  domain.Role
	Team  string // empty for no membership
}

// SeedPlayer is one roster entry created by Seed. Login names the
// SeedAccount the player belongs to, if any.
type SeedPlayer struct {
	Name  string
	Team  string
	Login string
}

// SeedData describes a demo data set.
type SeedData struct {
	Password string
	Teams    []string
	Accounts []SeedAccount
	Players  []SeedPlayer
}

// DemoData is the data set created by cmd/seed.
func DemoData(password string) SeedData {
	return SeedData{
		Password: password,
		Teams:    []string{"Lions", "Tigers"},
		Accounts: []SeedAccount{
			{Email: "admin@example.com", Name: "Ada Admin", Role: domain.RoleAdmin},
			{Email: "coach@example.com", Name: "Carl Coach", Role: domain.RoleHeadCoach, Team: "Lions"},
			{Email: "assistant@example.com", Name: "Ann Assistant", Role: domain.RoleCoach, Team: "Tigers"},
			{Email: "player@example.com", Name: "Pia Player", Role: domain.RolePlayer},
		},
		Players: []SeedPlayer{
			{Name: "Pia Player", Team: "Lions", Login: "player@example.com"},
			{Name: "Sam Striker", Team: "Lions"},
			{Name: "Kim Keeper", Team: "Tigers"},
			{Name: "Rae Reserve"},
		},
	}
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Teams, Accounts, Players, Memberships int
}

// ErrAlreadySeeded is returned by Seed when one of its accounts exists.
var ErrAlreadySeeded = errors.New("seed data already present")

// Seed writes data in one transaction. It refuses to run when any of the
// accounts already exists. The player login is left without a membership;
// its team scope is derived from the roster on first login.
func Seed(ctx context.Context, s store.Store, hasher cryptox.PasswordHasher, data SeedData, now time.Time) (SeedResult, error) {
	for _, a := range data.Accounts {
		_, err := s.Users().GetUserByEmail(ctx, a.Email)
		if err == nil {
			return SeedResult{}, fmt.Errorf("%w: %s", ErrAlreadySeeded, a.Email)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return SeedResult{}, fmt.Errorf("check user %q: %w", a.Email, err)
		}
	}

	hash, err := hasher.Hash(data.Password)
	if err != nil {
		return SeedResult{}, fmt.Errorf("hash password: %w", err)
	}

	var res SeedResult
	err = s.WithTx(ctx, func(tx store.Tx) error {
		res = SeedResult{}

		teams := make(map[string]int64, len(data.Teams))
		for _, name := range data.Teams {
			id, err := tx.Teams().CreateTeam(ctx, name)
			if err != nil {
				return fmt.Errorf("create team %q: %w", name, err)
			}
			teams[name] = id
			res.Teams++
		}

		profiles := make(map[string]int64, len(data.Accounts))
		for _, a := range data.Accounts {
			uid, err := tx.Users().CreateUser(ctx, domain.User{Email: a.Email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now})
			if err != nil {
				return fmt.Errorf("create user %q: %w", a.Email, err)
			}
			pid, err := tx.Profiles().CreateProfile(ctx, domain.Profile{
				UserID:            uid,
				Name:              a.Name,
				Role:              a.Role,
				IsActive:          true,
				PreferredLanguage: "en",
				CreatedAt:         now,
				UpdatedAt:         now,
			})
			if err != nil {
				return fmt.Errorf("create profile %q: %w", a.Email, err)
			}
			profiles[a.Email] = pid
			res.Accounts++

			teamID, ok := teams[a.Team]
			if !ok {
				continue
			}
			created, err := tx.Memberships().CreateMembership(ctx, domain.Membership{
				UserID:      uid,
				TeamID:      teamID,
				ProfileID:   pid,
				Role:        a.Role,
				Permissions: domain.Permissions{},
				IsActive:    true,
				GrantedAt:   now,
			})
			if err != nil {
				return fmt.Errorf("create membership %q: %w", a.Email, err)
			}
			if created {
				res.Memberships++
			}
		}

		for _, p := range data.Players {
			player := domain.Player{Name: p.Name, IsActive: true}
			if id, ok := teams[p.Team]; ok {
				player.TeamID = &id
			}
			if pid, ok := profiles[p.Login]; ok {
				player.ProfileID = &pid
			}
			if _, err := tx.Players().CreatePlayer(ctx, player); err != nil {
				return fmt.Errorf("create player %q: %w", p.Name, err)
			}
			res.Players++
		}
		return nil
	})
	return res, err
}
