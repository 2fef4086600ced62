package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"

	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/auth/store"
	"github.com/hollandstar/sportteams/internal/telemetry"
	"github.com/hollandstar/sportteams/pkg/kvstore"
	"github.com/hollandstar/sportteams/pkg/slogx"
)

const (
	DefaultContextCacheTTL   = 5 * time.Minute
	DefaultContextPersistTTL = 8 * time.Hour

	contextCachePrefix = "security_context:"
)

// SecurityContextService derives a user's role, team scopes and permissions.
// Results are cached in KV and mirrored into the security context table;
// the database stays the source of truth.
type SecurityContextService struct {
	Store      store.Store
	Cache      kvstore.Store
	CacheTTL   time.Duration
	PersistTTL time.Duration

	Metrics *telemetry.Metrics
	Tracer  trace.Tracer
	Now     func() time.Time

	group singleflight.Group
}

func contextCacheKey(userID int64) string {
	return contextCachePrefix + strconv.FormatInt(userID, 10)
}

func (s *SecurityContextService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SecurityContextService) cacheTTL() time.Duration {
	if s.CacheTTL <= 0 {
		return DefaultContextCacheTTL
	}
	return s.CacheTTL
}

func (s *SecurityContextService) persistTTL() time.Duration {
	if s.PersistTTL <= 0 {
		return DefaultContextPersistTTL
	}
	return s.PersistTTL
}

// Load returns the user's security context, from cache when possible.
// Concurrent misses for the same user share one computation.
func (s *SecurityContextService) Load(ctx context.Context, userID int64) (domain.SecurityContext, error) {
	tracer := s.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	ctx, span := tracer.Start(ctx, "SecurityContextService.Load")
	defer span.End()

	key := contextCacheKey(userID)
	if sc, ok := s.cached(ctx, key); ok {
		span.SetAttributes(attribute.String("auth.context_source", "cache"))
		s.Metrics.ContextLoaded(ctx, "cache")
		return sc, nil
	}

	// The computation is shared, so it must outlive the caller that started it.
	ch := s.group.DoChan(key, func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), userID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return domain.SecurityContext{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return domain.SecurityContext{}, res.Err
	}
	span.SetAttributes(attribute.String("auth.context_source", "database"))
	s.Metrics.ContextLoaded(ctx, "database")
	return res.Val.(domain.SecurityContext), nil
}

func (s *SecurityContextService) cached(ctx context.Context, key string) (domain.SecurityContext, bool) {
	raw, ok, err := s.Cache.Get(ctx, key)
	if err != nil {
		slogx.FromContext(ctx).Warn("security context cache read failed", "key", key, "error", err)
		return domain.SecurityContext{}, false
	}
	if !ok {
		return domain.SecurityContext{}, false
	}

	var sc domain.SecurityContext
	if err := json.Unmarshal(raw, &sc); err != nil {
		slogx.FromContext(ctx).Warn("discarding undecodable security context", "key", key, "error", err)
		return domain.SecurityContext{}, false
	}
	return sc, true
}

func (s *SecurityContextService) compute(ctx context.Context, userID int64) (domain.SecurityContext, error) {
	l := slogx.FromContext(ctx)

	profile, err := s.Store.Profiles().GetProfileByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.SecurityContext{}, ErrProfileNotFound
	}
	if err != nil {
		return domain.SecurityContext{}, fmt.Errorf("load profile: %w", err)
	}
	if !profile.IsActive {
		return domain.SecurityContext{}, ErrProfileNotFound
	}

	sc := domain.SecurityContext{
		UserID:      userID,
		ProfileID:   profile.ID,
		Role:        profile.Role,
		TeamScopes:  []int64{},
		Permissions: profile.Role.DefaultPermissions(),
	}

	if !sc.Role.IsAdmin() {
		memberships, err := s.Store.Memberships().ListActiveMemberships(ctx, userID)
		if err != nil {
			return domain.SecurityContext{}, fmt.Errorf("load memberships: %w", err)
		}
		for _, m := range memberships {
			sc.TeamScopes = append(sc.TeamScopes, m.TeamID)
			sc.Permissions.Merge(m.Permissions)
		}
	}

	if sc.Role.IsPlayer() && len(sc.TeamScopes) == 0 {
		teamID, err := s.healPlayerScope(ctx, profile)
		if err != nil {
			return domain.SecurityContext{}, err
		}
		if teamID != 0 {
			sc.TeamScopes = append(sc.TeamScopes, teamID)
		}
	}

	now := s.now()
	err = s.Store.SecurityContexts().UpsertSecurityContext(ctx, domain.StoredSecurityContext{
		SecurityContext: sc,
		LastActivity:    now,
		ExpiresAt:       now.Add(s.persistTTL()),
	})
	if err != nil {
		l.Warn("failed to persist security context", "user_id", userID, "error", err)
	}

	raw, err := json.Marshal(sc)
	if err != nil {
		return domain.SecurityContext{}, fmt.Errorf("encode security context: %w", err)
	}
	if err := s.Cache.Put(ctx, contextCacheKey(userID), raw, s.cacheTTL()); err != nil {
		l.Warn("failed to cache security context", "user_id", userID, "error", err)
	}

	return sc, nil
}

// healPlayerScope derives a team scope for a player without memberships from
// the player's roster entry and records the missing membership. It returns
// zero when the player has no team.
func (s *SecurityContextService) healPlayerScope(ctx context.Context, profile domain.Profile) (int64, error) {
	player, err := s.Store.Players().GetActivePlayerByProfileID(ctx, profile.ID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load player record: %w", err)
	}
	if player.TeamID == nil {
		return 0, nil
	}

	created, err := s.Store.Memberships().CreateMembership(ctx, domain.Membership{
		UserID:      profile.UserID,
		TeamID:      *player.TeamID,
		ProfileID:   profile.ID,
		Role:        domain.RolePlayer,
		Permissions: domain.RolePlayer.DefaultPermissions(),
		IsActive:    true,
		GrantedAt:   s.now(),
	})
	if err != nil {
		// The scope is still correct for this request; the row is retried
		// on the next miss.
		slogx.FromContext(ctx).Warn("failed to create player membership",
			"user_id", profile.UserID, "team_id", *player.TeamID, "error", err)
	} else if created {
		slogx.FromContext(ctx).Info("created missing player membership",
			"user_id", profile.UserID, "team_id", *player.TeamID)
	}
	return *player.TeamID, nil
}

// Invalidate drops the cached context so the next Load recomputes it.
func (s *SecurityContextService) Invalidate(ctx context.Context, userID int64) error {
	return s.Cache.Forget(ctx, contextCacheKey(userID))
}

// Persisted returns the durable copy written by the last computation.
func (s *SecurityContextService) Persisted(ctx context.Context, userID int64) (domain.StoredSecurityContext, error) {
	return s.Store.SecurityContexts().GetSecurityContext(ctx, userID)
}

// CanViewPlayer reports whether sc may read the player. A missing player is
// not viewable.
func (s *SecurityContextService) CanViewPlayer(ctx context.Context, sc domain.SecurityContext, playerID int64) (bool, error) {
	p, err := s.Store.Players().GetPlayer(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sc.CanView(p), nil
}

// CanEditPlayer reports whether sc may modify the player.
func (s *SecurityContextService) CanEditPlayer(ctx context.Context, sc domain.SecurityContext, playerID int64) (bool, error) {
	p, err := s.Store.Players().GetPlayer(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sc.CanEdit(p), nil
}

// ListPlayers returns the players sc may see.
func (s *SecurityContextService) ListPlayers(ctx context.Context, sc domain.SecurityContext) ([]domain.Player, error) {
	return s.Store.Players().ListPlayers(ctx, sc.ScopedPlayerFilter())
}

// GetPlayer returns a player sc may see. Players outside the caller's scope
// are reported as ErrAuthorization.
func (s *SecurityContextService) GetPlayer(ctx context.Context, sc domain.SecurityContext, playerID int64) (domain.Player, error) {
	p, err := s.Store.Players().GetPlayer(ctx, playerID)
	if err != nil {
		return domain.Player{}, err
	}
	if !sc.CanView(p) {
		return domain.Player{}, ErrAuthorization
	}
	return p, nil
}
