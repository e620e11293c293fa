// Package postgres implements the repository interfaces on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is the part of *pgxpool.Pool the repositories use; pgxmock's
// PgxPoolIface satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// DB is shared by all repositories.
type DB struct{ Pool PgxPool }

// New opens a pool for dsn.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

// Ping checks connectivity; used by the health watcher.
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

// Close releases the pool.
func (db *DB) Close() { db.Pool.Close() }

// SQLSTATE codes mapped to domain errors.
const (
	codeUniqueViolation = "23505"
	codeFKViolation     = "23503"
)

func pgCode(err error) string {
	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		return pg.Code
	}
	return ""
}

// isUniqueViolation: duplicate email, duplicate storage key.
func isUniqueViolation(err error) bool { return pgCode(err) == codeUniqueViolation }

// isFKViolation: request for a document deleted concurrently.
func isFKViolation(err error) bool { return pgCode(err) == codeFKViolation }
