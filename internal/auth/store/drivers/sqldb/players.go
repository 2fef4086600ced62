package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hollandstar/sportteams/internal/auth/domain"
)

type playersRepo struct {
	q *Queries
}

const playerColumns = `id, profile_id, team_id, name, is_active`

func scanPlayer(row interface{ Scan(...any) error }) (domain.Player, error) {
	var (
		p               domain.Player
		profile, teamID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &profile, &teamID, &p.Name, &p.IsActive); err != nil {
		return domain.Player{}, mapNotFound(err)
	}
	p.ProfileID = mapNullInt64(profile)
	p.TeamID = mapNullInt64(teamID)
	return p, nil
}

func (r *playersRepo) GetPlayer(ctx context.Context, id int64) (domain.Player, error) {
	return scanPlayer(r.q.queryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id))
}

func (r *playersRepo) GetActivePlayerByProfileID(ctx context.Context, profileID int64) (domain.Player, error) {
	return scanPlayer(r.q.queryRow(ctx,
		`SELECT `+playerColumns+` FROM players
		 WHERE profile_id = ? AND is_active = ?
		 ORDER BY id LIMIT 1`,
		profileID, true,
	))
}

func (r *playersRepo) ListPlayers(ctx context.Context, f domain.PlayerFilter) ([]domain.Player, error) {
	where, args, ok := compilePlayerFilter(f)
	if !ok {
		return []domain.Player{}, nil
	}

	rows, err := r.q.query(ctx, `SELECT `+playerColumns+` FROM players WHERE `+where+` ORDER BY name, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *playersRepo) CreatePlayer(ctx context.Context, p domain.Player) (int64, error) {
	return r.q.insertID(ctx,
		`INSERT INTO players (profile_id, team_id, name, is_active) VALUES (?, ?, ?, ?) RETURNING id`,
		mapOptionalInt64(p.ProfileID), mapOptionalInt64(p.TeamID), p.Name, p.IsActive,
	)
}

// compilePlayerFilter turns the structured filter into a WHERE clause with
// bind markers. Values never reach the SQL text. ok is false when the filter
// can match nothing, so no query needs to run.
func compilePlayerFilter(f domain.PlayerFilter) (where string, args []any, ok bool) {
	switch f.Kind {
	case domain.FilterAllActive:
		return `is_active = ?`, []any{true}, true

	case domain.FilterSelfOrTeams:
		if len(f.TeamIDs) == 0 {
			return `profile_id = ?`, []any{f.ProfileID}, true
		}
		args = append([]any{f.ProfileID}, int64Args(f.TeamIDs)...)
		return fmt.Sprintf(`(profile_id = ? OR team_id IN (%s))`, placeholders(len(f.TeamIDs))), args, true

	case domain.FilterTeamsOnly:
		if len(f.TeamIDs) == 0 {
			return "", nil, false
		}
		args = append([]any{true}, int64Args(f.TeamIDs)...)
		return fmt.Sprintf(`is_active = ? AND team_id IN (%s)`, placeholders(len(f.TeamIDs))), args, true

	default:
		return "", nil, false
	}
}
