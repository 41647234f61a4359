package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domainrepo "github.com/ignatzorin/payout-ledger/internal/domain/repository"
	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/repository/common"
)

// LedgerRepository runs approval units against Postgres. Each unit locks the
// transaction row first and the wallet row second, so units never wait on
// each other in opposite orders.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// RunInTx implements domainrepo.LedgerStore.
func (r *LedgerRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domainrepo.LedgerTx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	return common.WithTransaction(ctx, r.db, opts, func(tx *sqlx.Tx) error {
		return fn(ctx, &pgLedgerTx{tx: tx})
	})
}

type pgLedgerTx struct {
	tx *sqlx.Tx
}

func (t *pgLedgerTx) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	var wt models.WalletTransaction
	err := t.tx.GetContext(ctx, &wt, `SELECT `+transactionColumns+` FROM wallet_transactions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrTransactionNotFound
		}
		return nil, common.ClassifyError(fmt.Errorf("ledger repository: lock transaction: %w", err))
	}
	return &wt, nil
}

func (t *pgLedgerTx) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := t.tx.GetContext(ctx, &w, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrWalletNotFound
		}
		return nil, common.ClassifyError(fmt.Errorf("ledger repository: lock wallet: %w", err))
	}
	return &w, nil
}

func (t *pgLedgerTx) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to valueobject.TransactionStatus, audit models.TransitionAudit) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE wallet_transactions
		SET status = $3, approved_by = $4, approved_at = $5, notes = COALESCE($6, notes)
		WHERE id = $1 AND status = $2
	`, id, from, to, audit.ApprovedBy, audit.ApprovedAt, audit.Notes)
	if err != nil {
		return false, common.ClassifyError(fmt.Errorf("ledger repository: update status: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, common.ClassifyError(fmt.Errorf("ledger repository: rows affected: %w", err))
	}
	return n == 1, nil
}

func (t *pgLedgerTx) UpdateWalletAggregates(ctx context.Context, w *models.Wallet) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance_usd = $2, pending_payout = $3, total_earned = $4, total_paid_out = $5,
			last_payout_date = $6, updated_at = $7
		WHERE id = $1
	`, w.ID, w.BalanceUSD, w.PendingPayout, w.TotalEarned, w.TotalPaidOut, w.LastPayoutDate, w.UpdatedAt)
	if err != nil {
		return common.ClassifyError(fmt.Errorf("ledger repository: update wallet: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return common.ClassifyError(fmt.Errorf("ledger repository: rows affected: %w", err))
	}
	if n != 1 {
		return apperror.ErrWalletNotFound
	}
	return nil
}
