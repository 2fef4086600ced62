package sqldb

import (
	"context"
	"strings"

	"github.com/hollandstar/sportteams/internal/auth/domain"
)

type usersRepo struct {
	q *Queries
}

const userColumns = `id, email, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u                domain.User
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &created, &updated); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.CreatedAt = fromUnix(created)
	u.UpdatedAt = fromUnix(updated)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.q.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		normalizeEmail(email),
	))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	return r.q.insertID(ctx,
		`INSERT INTO users (email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?) RETURNING id`,
		normalizeEmail(u.Email), u.PasswordHash, unix(u.CreatedAt), unix(u.CreatedAt),
	)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
