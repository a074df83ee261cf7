// Package store owns the database connection pool and the small set of
// primitives the repositories build on: a retrying opener, a transaction
// wrapper, and unique-violation classification.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 5 * time.Second
	openAttempts = 3
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx, so repository
// queries can run inside or outside a transaction unchanged.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to Postgres and verifies the connection, retrying a few
// times with backoff so a briefly unavailable database does not kill the
// process at startup.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= openAttempts; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = db.PingContext(pctx)
		cancel()
		if lastErr == nil {
			return db, nil
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	db.Close()
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", openAttempts, lastErr)
}

// WithTx runs fn inside a transaction, committing on nil and rolling back
// on error or panic.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// IsUniqueViolation reports whether err is a Postgres unique or exclusion
// constraint violation, optionally on a specific constraint. The storage
// constraints are the final authority on duplicates; application-level
// pre-checks only exist to produce friendlier errors.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != "23505" && pgErr.Code != "23P01" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
