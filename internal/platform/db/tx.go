package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errNoConn = errors.New("no database connection in context")

// TxFromContext returns the transaction started by WithTx, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// WithTx begins a transaction on the request connection and returns a context
// carrying it. Callers own Commit/Rollback.
func WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return ctx, nil, errNoConn
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return context.WithValue(ctx, DBTxKey, tx), tx, nil
}

// RunInTx runs fn inside a single transaction. An already open transaction in
// ctx is reused as is. Otherwise the request connection is used, falling back
// to pool when the call does not come from an HTTP request.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	var (
		tx  pgx.Tx
		err error
	)
	switch {
	case ConnFromContext(ctx) != nil:
		ctx, tx, err = WithTx(ctx)
	case pool != nil:
		tx, err = pool.Begin(ctx)
		if err == nil {
			ctx = context.WithValue(ctx, DBTxKey, tx)
		}
	default:
		return errNoConn
	}
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
