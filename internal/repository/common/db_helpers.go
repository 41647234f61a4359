package common

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
)

// GetByID loads one row of table by primary key.
func GetByID[T any](ctx context.Context, q sqlx.QueryerContext, table string, id interface{}, notFoundErr error) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table)

	if err := sqlx.GetContext(ctx, q, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, ClassifyError(fmt.Errorf("get by id from %s: %w", table, err))
	}

	return &entity, nil
}

// WithTransaction runs fn inside a transaction and commits when it returns nil.
func WithTransaction(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return ClassifyError(fmt.Errorf("begin transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ClassifyError(fmt.Errorf("commit transaction: %w", err))
	}

	return nil
}

// Postgres error classes that leave the database consistent and are safe to
// retry as a whole.
const (
	pqClassTransactionRollback pq.ErrorClass = "40"
	pqClassConnectionException pq.ErrorClass = "08"
)

// IsRetryable reports whether err is a serialization failure, deadlock or a
// dropped connection.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		class := pqErr.Code.Class()
		return class == pqClassTransactionRollback || class == pqClassConnectionException
	}
	return errors.Is(err, driver.ErrBadConn)
}

// ClassifyError wraps store failures as transient AppErrors. AppErrors and
// context cancellations pass through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) || errors.Is(err, context.Canceled) {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodeTransientStore, "store operation failed")
}

// UUIDArray converts ids into a text array parameter for "= ANY($n::uuid[])".
func UUIDArray[T fmt.Stringer](ids []T) pq.StringArray {
	out := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
