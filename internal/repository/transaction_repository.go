package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/repository/common"
)

const transactionColumns = `id, wallet_id, user_id, transaction_type, amount_usd, status,
	related_entity_type, related_entity_id, notes, approved_by, approved_at, created_date`

// TransactionRepository is the Postgres transaction log. Rows are never
// deleted; status changes go through LedgerRepository.
type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	return common.GetByID[models.WalletTransaction](ctx, r.db, "wallet_transactions", id, apperror.ErrTransactionNotFound)
}

// ListTransactions returns transactions of one type whose status is in statuses, oldest first.
func (r *TransactionRepository) ListTransactions(ctx context.Context, txType valueobject.TransactionType, statuses []valueobject.TransactionStatus) ([]models.WalletTransaction, error) {
	if len(statuses) == 0 {
		return []models.WalletTransaction{}, nil
	}

	raw := make([]string, 0, len(statuses))
	for _, s := range statuses {
		raw = append(raw, string(s))
	}

	var txs []models.WalletTransaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE transaction_type = $1 AND status = ANY($2)
		ORDER BY created_date, id
	`, txType, pq.Array(raw))
	if err != nil {
		return nil, common.ClassifyError(fmt.Errorf("transaction repository: list %s: %w", txType, err))
	}
	return txs, nil
}

// ListWalletTransactions returns the full history of one wallet, oldest first.
func (r *TransactionRepository) ListWalletTransactions(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error) {
	var txs []models.WalletTransaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_date, id
	`, walletID)
	if err != nil {
		return nil, common.ClassifyError(fmt.Errorf("transaction repository: list wallet %s: %w", walletID, err))
	}
	return txs, nil
}

// AppendTransaction inserts tx. ID and CreatedDate are filled in when empty.
func (r *TransactionRepository) AppendTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	err := r.db.GetContext(ctx, &tx.CreatedDate, `
		INSERT INTO wallet_transactions (id, wallet_id, user_id, transaction_type, amount_usd, status,
			related_entity_type, related_entity_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_date
	`, tx.ID, tx.WalletID, tx.UserID, tx.TransactionType, tx.AmountUSD, tx.Status,
		tx.RelatedEntityType, tx.RelatedEntityID, tx.Notes)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23503":
				return apperror.Wrap(err, apperror.ErrCodeNotFound, "wallet not found")
			case "23505":
				return apperror.Wrap(common.ErrAlreadyExists, apperror.ErrCodeBadRequest, "transaction already exists")
			}
		}
		return common.ClassifyError(fmt.Errorf("transaction repository: append: %w", err))
	}
	return nil
}
