package sqldb

import (
	"context"

	"github.com/hollandstar/sportteams/internal/auth/domain"
)

type teamsRepo struct {
	q *Queries
}

func (r *teamsRepo) GetTeam(ctx context.Context, id int64) (domain.Team, error) {
	var t domain.Team
	if err := r.q.queryRow(ctx, `SELECT id, name FROM teams WHERE id = ?`, id).Scan(&t.ID, &t.Name); err != nil {
		return domain.Team{}, mapNotFound(err)
	}
	return t, nil
}

func (r *teamsRepo) CreateTeam(ctx context.Context, name string) (int64, error) {
	return r.q.insertID(ctx, `INSERT INTO teams (name) VALUES (?) RETURNING id`, name)
}
