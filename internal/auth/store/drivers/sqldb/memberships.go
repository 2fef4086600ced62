package sqldb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hollandstar/sportteams/internal/auth/domain"
)

type membershipsRepo struct {
	q *Queries
}

func (r *membershipsRepo) ListActiveMemberships(ctx context.Context, userID int64) ([]domain.Membership, error) {
	rows, err := r.q.query(ctx,
		`SELECT id, user_id, team_id, profile_id, role, permissions, is_active, granted_at
		 FROM team_memberships
		 WHERE user_id = ? AND is_active = ?
		 ORDER BY team_id`,
		userID, true,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Membership
	for rows.Next() {
		var (
			m       domain.Membership
			role    string
			perms   string
			granted int64
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.TeamID, &m.ProfileID, &role, &perms, &m.IsActive, &granted); err != nil {
			return nil, err
		}
		m.Role = domain.ParseRole(role)
		m.GrantedAt = fromUnix(granted)
		if m.Permissions, err = decodePermissions(perms); err != nil {
			return nil, fmt.Errorf("membership %d: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) (bool, error) {
	perms, err := encodePermissions(m.Permissions)
	if err != nil {
		return false, err
	}
	res, err := r.q.exec(ctx,
		`INSERT INTO team_memberships (user_id, team_id, profile_id, role, permissions, is_active, granted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, team_id) DO NOTHING`,
		m.UserID, m.TeamID, m.ProfileID, m.Role.String(), perms, m.IsActive, unix(m.GrantedAt),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func encodePermissions(p domain.Permissions) (string, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodePermissions(s string) (domain.Permissions, error) {
	p := domain.Permissions{}
	if s == "" || s == "null" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	return p, nil
}
