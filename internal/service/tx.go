package service

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
)

// txProvider begins database transactions for multi-write operations.
type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// runInTx executes fn inside a transaction, committing on success and rolling
// back on error. With a nil provider fn runs against the bare connection,
// which keeps unit tests free of transaction plumbing.
func runInTx(ctx context.Context, tx txProvider, fn func(exec sqlx.ExtContext) error) error {
	if tx == nil {
		return fn(nil)
	}
	txx, err := tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := fn(txx); err != nil {
		_ = txx.Rollback()
		return err
	}
	if err := txx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}
