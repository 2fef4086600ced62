package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/domain"
)

type profilesRepo struct {
	q *Queries
}

func (r *profilesRepo) GetProfileByUserID(ctx context.Context, userID int64) (domain.Profile, error) {
	var (
		p                domain.Profile
		role             string
		lastLogin        sql.NullInt64
		created, updated int64
	)
	err := r.q.queryRow(ctx,
		`SELECT id, user_id, name, role, is_active, preferred_language, last_login_at, created_at, updated_at
		 FROM profiles WHERE user_id = ?`,
		userID,
	).Scan(&p.ID, &p.UserID, &p.Name, &role, &p.IsActive, &p.PreferredLanguage, &lastLogin, &created, &updated)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	p.Role = domain.ParseRole(role)
	p.LastLoginAt = mapNullUnix(lastLogin)
	p.CreatedAt = fromUnix(created)
	p.UpdatedAt = fromUnix(updated)
	return p, nil
}

func (r *profilesRepo) CreateProfile(ctx context.Context, p domain.Profile) (int64, error) {
	lang := p.PreferredLanguage
	if lang == "" {
		lang = "en"
	}
	return r.q.insertID(ctx,
		`INSERT INTO profiles (user_id, name, role, is_active, preferred_language, last_login_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		p.UserID, p.Name, p.Role.String(), p.IsActive, lang,
		mapOptionalUnix(p.LastLoginAt), unix(p.CreatedAt), unix(p.CreatedAt),
	)
}

func (r *profilesRepo) TouchLastLogin(ctx context.Context, profileID int64, at time.Time) error {
	_, err := r.q.exec(ctx,
		`UPDATE profiles SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		unix(at), unix(at), profileID,
	)
	return err
}
