package sqldb

import (
	"context"
	"database/sql"

	"github.com/hollandstar/sportteams/internal/auth/store"
)

type txStore struct {
	tx *sql.Tx
	q  *Queries
}

func newTx(tx *sql.Tx, d Dialect) *txStore {
	return &txStore{tx: tx, q: NewQueries(tx, d)}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits or rolls back; the outer DB stays open

func (t *txStore) Ping(context.Context) error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) {
	// Nested tx not supported
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(context.Context, func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx

func (t *txStore) Users() store.Users                       { return &usersRepo{q: t.q} }
func (t *txStore) Profiles() store.Profiles                 { return &profilesRepo{q: t.q} }
func (t *txStore) Teams() store.Teams                       { return &teamsRepo{q: t.q} }
func (t *txStore) Players() store.Players                   { return &playersRepo{q: t.q} }
func (t *txStore) Memberships() store.Memberships           { return &membershipsRepo{q: t.q} }
func (t *txStore) RefreshTokens() store.RefreshTokens       { return &refreshTokensRepo{q: t.q} }
func (t *txStore) SecurityContexts() store.SecurityContexts { return &securityContextsRepo{q: t.q} }
