package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/store/drivers/sqldb"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

type Store struct {
	*sqldb.Store
}

// NewStore opens a Postgres connection pool through the pgx stdlib driver
// and verifies it is reachable.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: sqldb.New(db, dialect{})}, nil
}

type dialect struct{}

func (dialect) Name() string { return "postgres" }

func (dialect) Placeholder(n int) string { return sqldb.DollarPlaceholder(n) }

func (dialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (dialect) Migrate(db *sql.DB) error { return applyMigrations(db) }
