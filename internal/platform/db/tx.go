package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// Runner executes a function inside a single database transaction. The
// scheduling service depends on this interface rather than on pgx directly so
// that tests can substitute an in-memory implementation.
type Runner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxRunner is the pgx-backed Runner. Repositories retrieve the open
// transaction from the context via TxFromContext, so every read and write
// issued inside fn shares one atomic unit of work.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// InTx begins a transaction, stores it in the context, runs fn, and commits.
// Any error from fn rolls the transaction back and is returned unchanged so
// callers can match sentinel errors with errors.Is.
func (r *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		// Already inside a transaction: join it.
		return fn(ctx)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TxFromContext returns the transaction opened by InTx, or nil when the
// context carries none.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}

// AcquireDoctorLock takes a transaction-scoped advisory lock keyed by doctor
// profile id. It serializes concurrent check-then-create booking attempts
// against the same doctor's calendar and is released automatically at commit
// or rollback. Must be called inside InTx.
func AcquireDoctorLock(ctx context.Context, doctorProfileID int64) error {
	tx := TxFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("advisory lock requires an open transaction")
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, doctorProfileID); err != nil {
		return fmt.Errorf("acquire doctor lock %d: %w", doctorProfileID, err)
	}
	return nil
}
