package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/repository/common"
)

const walletColumns = `id, user_id, user_type, balance_usd, pending_payout, total_earned, total_paid_out,
	last_payout_date, payment_details, created_at, updated_at`

type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetWallet returns the wallet with the given id.
func (r *WalletRepository) GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	return common.GetByID[models.Wallet](ctx, r.db, "wallets", id, apperror.ErrWalletNotFound)
}

// ListWallets returns all wallets, sorted by available balance when requested.
func (r *WalletRepository) ListWallets(ctx context.Context, sort models.WalletSort) ([]models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets`
	switch sort {
	case models.WalletSortNone:
	case models.WalletSortBalanceDesc:
		query += ` ORDER BY balance_usd DESC, id`
	default:
		return nil, apperror.Newf(apperror.ErrCodeValidation, "unsupported wallet sort %q", sort)
	}

	var wallets []models.Wallet
	if err := r.db.SelectContext(ctx, &wallets, query); err != nil {
		return nil, common.ClassifyError(fmt.Errorf("wallet repository: list wallets: %w", err))
	}
	return wallets, nil
}
