package sqldb

import (
	"context"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/domain"
	"github.com/hollandstar/sportteams/internal/auth/store"
)

type refreshTokensRepo struct {
	q *Queries
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, is_revoked, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, unix(t.ExpiresAt), t.Revoked, unix(t.CreatedAt), unix(t.CreatedAt),
	)
	if err != nil && r.q.d.IsUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var (
		t                         domain.RefreshToken
		expires, created, updated int64
	)
	err := r.q.queryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, is_revoked, created_at, updated_at
		 FROM refresh_tokens WHERE token_hash = ?`,
		hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &expires, &t.Revoked, &created, &updated)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ExpiresAt = fromUnix(expires)
	t.CreatedAt = fromUnix(created)
	t.UpdatedAt = fromUnix(updated)
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string, at time.Time) (bool, error) {
	res, err := r.q.exec(ctx,
		`UPDATE refresh_tokens SET is_revoked = ?, updated_at = ?
		 WHERE token_hash = ? AND is_revoked = ?`,
		true, unix(at), hash, false,
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

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID int64, at time.Time) (int64, error) {
	res, err := r.q.exec(ctx,
		`UPDATE refresh_tokens SET is_revoked = ?, updated_at = ?
		 WHERE user_id = ? AND is_revoked = ?`,
		true, unix(at), userID, false,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, unix(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
