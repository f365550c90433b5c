package db

import (
	"context"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/member-chat/internal/common/constants"
	"github.com/AlibekovAA/member-chat/internal/observability/metrics"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx, so a
// repository can run against either.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TxBeginner starts transactions.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Conn is a handle that can both query and open transactions.
type Conn interface {
	DBTX
	TxBeginner
}

var (
	_ DBTX = (*pgxpool.Pool)(nil)
	_ DBTX = (pgx.Tx)(nil)
	_ Conn = (*pgxpool.Pool)(nil)
)

// WithTx runs fn inside a transaction bounded by DBQueryTimeout. It commits
// when fn returns nil and rolls back otherwise; a panic is rethrown after the
// rollback.
func WithTx(ctx context.Context, conn TxBeginner, opts pgx.TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// rollback must run even when ctx is already done
		_ = tx.Rollback(context.Background())
		metrics.DBTransactions.WithLabelValues("rollback").Inc()
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.DBTransactions.WithLabelValues("commit_failed").Inc()
		return err
	}
	committed = true
	metrics.DBTransactions.WithLabelValues("commit").Inc()
	return nil
}
