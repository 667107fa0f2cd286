package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Per-asset transaction budgets: a slow asset write must not stall the
// whole reconciliation pass.
const (
	entryTxWaitBudget = 50 * time.Second
	entryTxExecBudget = 10 * time.Second
)

// PostgreSQL is an implementation of the Database interface using PostgreSQL.
type PostgreSQL struct {
	pool *pgxpool.Pool
}

// Executor is an interface for executing queries (satisfied by both pgx.Tx
// and pgxpool.Pool).
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPostgreSQL creates a new instance of the PostgreSQL database and runs
// schema migrations.
func NewPostgreSQL(ctx context.Context, connectionURI string) (*PostgreSQL, error) {
	config, err := pgxpool.ParseConfig(connectionURI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	// Stability-focused pool defaults
	config.MaxConns = 30
	config.MinConns = 5
	config.MaxConnIdleTime = 30 * time.Minute
	config.MaxConnLifetime = 2 * time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	// Run migrations using a single connection from the pool
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for migrations: %w", err)
	}
	defer conn.Release()

	if err := migrate(ctx, conn.Conn()); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return &PostgreSQL{pool: pool}, nil
}

// Close releases the connection pool.
func (db *PostgreSQL) Close() {
	db.pool.Close()
}

// InEntryTransaction executes fn within one database transaction. Beginning
// the transaction waits at most entryTxWaitBudget; the body and commit run
// under entryTxExecBudget. A timeout surfaces as a per-asset error and is
// skipped for the pass, not retried.
func (db *PostgreSQL) InEntryTransaction(ctx context.Context, fn func(ctx context.Context, tx EntryTx) error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	beginCtx, cancelBegin := context.WithTimeout(ctx, entryTxWaitBudget)
	defer cancelBegin()

	tx, err := db.pool.Begin(beginCtx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		rollbackCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if rbErr := tx.Rollback(rollbackCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Printf("failed to rollback transaction: %v", rbErr)
		}
	}()

	execCtx, cancelExec := context.WithTimeout(ctx, entryTxExecBudget)
	defer cancelExec()

	if err := fn(execCtx, &entryTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(execCtx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// entryTx adapts a pgx transaction to the EntryTx contract.
type entryTx struct {
	tx pgx.Tx
}
