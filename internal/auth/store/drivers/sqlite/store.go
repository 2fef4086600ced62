package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hollandstar/sportteams/internal/auth/store/drivers/sqldb"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	*sqldb.Store
	dsn string
}

// NewStore opens a SQLite database. The pool is limited to one connection
// so ":memory:" databases are shared by every query and writes serialise.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{Store: sqldb.New(db, dialect{}), dsn: dsn}, nil
}

type dialect struct{}

func (dialect) Name() string { return "sqlite" }

func (dialect) Placeholder(n int) string { return sqldb.QuestionPlaceholder(n) }

func (dialect) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	default:
		return false
	}
}

func (dialect) Migrate(db *sql.DB) error { return applyMigrations(db) }
