// Package sqldb implements the store interfaces on database/sql. Driver
// packages (sqlite, postgres) open the connection and supply a Dialect.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/store"
)

// Dialect captures what differs between SQL engines.
type Dialect interface {
	Name() string

	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string

	IsUniqueViolation(err error) bool

	// Migrate applies the driver's embedded migrations.
	Migrate(db *sql.DB) error
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	q  *Queries
}

func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, q: NewQueries(db, d)}
}

// DB exposes the underlying handle for driver-level concerns.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) ApplyMigrations() error { return s.q.d.Migrate(s.db) }

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx, s.q.d), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users                       { return &usersRepo{q: s.q} }
func (s *Store) Profiles() store.Profiles                 { return &profilesRepo{q: s.q} }
func (s *Store) Teams() store.Teams                       { return &teamsRepo{q: s.q} }
func (s *Store) Players() store.Players                   { return &playersRepo{q: s.q} }
func (s *Store) Memberships() store.Memberships           { return &membershipsRepo{q: s.q} }
func (s *Store) RefreshTokens() store.RefreshTokens       { return &refreshTokensRepo{q: s.q} }
func (s *Store) SecurityContexts() store.SecurityContexts { return &securityContextsRepo{q: s.q} }

// Queries runs the hand-written statements against a DBTX. Statements are
// written with '?' markers and rebound for the dialect.
type Queries struct {
	db DBTX
	d  Dialect
}

func NewQueries(db DBTX, d Dialect) *Queries { return &Queries{db: db, d: d} }

func (q *Queries) rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(q.d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

// insertID runs an INSERT ... RETURNING id.
func (q *Queries) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := q.queryRow(ctx, query, args...).Scan(&id); err != nil {
		if q.d.IsUniqueViolation(err) {
			return 0, store.ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

// QuestionPlaceholder is the '?' marker used by sqlite.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder is the '$n' marker used by postgres.
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func unix(t time.Time) int64 { return t.Unix() }

func fromUnix(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func mapNullUnix(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromUnix(n.Int64)
	return &t
}

func mapOptionalUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func mapNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func mapOptionalInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// placeholders returns "?, ?, ..." for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
