package sqldb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/domain"
)

type securityContextsRepo struct {
	q *Queries
}

func (r *securityContextsRepo) UpsertSecurityContext(ctx context.Context, sc domain.StoredSecurityContext) error {
	scopes, err := json.Marshal(nonNilScopes(sc.TeamScopes))
	if err != nil {
		return err
	}
	perms, err := encodePermissions(sc.Permissions)
	if err != nil {
		return err
	}
	_, err = r.q.exec(ctx,
		`INSERT INTO user_security_contexts (user_id, profile_id, role, team_scopes, permissions, last_activity, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   profile_id = excluded.profile_id,
		   role = excluded.role,
		   team_scopes = excluded.team_scopes,
		   permissions = excluded.permissions,
		   last_activity = excluded.last_activity,
		   expires_at = excluded.expires_at`,
		sc.UserID, sc.ProfileID, sc.Role.String(), string(scopes), perms,
		unix(sc.LastActivity), unix(sc.ExpiresAt),
	)
	return err
}

func (r *securityContextsRepo) GetSecurityContext(ctx context.Context, userID int64) (domain.StoredSecurityContext, error) {
	var (
		sc                    domain.StoredSecurityContext
		role, scopes, perms   string
		lastActivity, expires int64
	)
	err := r.q.queryRow(ctx,
		`SELECT user_id, profile_id, role, team_scopes, permissions, last_activity, expires_at
		 FROM user_security_contexts WHERE user_id = ?`,
		userID,
	).Scan(&sc.UserID, &sc.ProfileID, &role, &scopes, &perms, &lastActivity, &expires)
	if err != nil {
		return domain.StoredSecurityContext{}, mapNotFound(err)
	}

	sc.Role = domain.ParseRole(role)
	if err := json.Unmarshal([]byte(scopes), &sc.TeamScopes); err != nil {
		return domain.StoredSecurityContext{}, fmt.Errorf("decode team scopes: %w", err)
	}
	if sc.Permissions, err = decodePermissions(perms); err != nil {
		return domain.StoredSecurityContext{}, err
	}
	sc.LastActivity = fromUnix(lastActivity)
	sc.ExpiresAt = fromUnix(expires)
	return sc, nil
}

func (r *securityContextsRepo) DeleteExpiredSecurityContexts(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.exec(ctx, `DELETE FROM user_security_contexts WHERE expires_at <= ?`, unix(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nonNilScopes(s []int64) []int64 {
	if s == nil {
		return []int64{}
	}
	return s
}
