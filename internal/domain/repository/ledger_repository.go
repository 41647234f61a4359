package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/models"
)

// WalletReader is the read side of the wallet store.
type WalletReader interface {
	GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	ListWallets(ctx context.Context, sort models.WalletSort) ([]models.Wallet, error)
}

// TransactionReader is the read side of the transaction log.
type TransactionReader interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, txType valueobject.TransactionType, statuses []valueobject.TransactionStatus) ([]models.WalletTransaction, error)
	ListWalletTransactions(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error)
}

// TransactionAppender appends new entries to the transaction log.
type TransactionAppender interface {
	AppendTransaction(ctx context.Context, tx *models.WalletTransaction) error
}

// LedgerTx is the view of the store inside one atomic unit. Rows read through
// it stay locked until the unit ends.
type LedgerTx interface {
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error)
	GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	// CompareAndSetStatus moves the transaction from -> to only if it is still
	// in status from. It reports false when the guard did not match.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to valueobject.TransactionStatus, audit models.TransitionAudit) (bool, error)
	UpdateWalletAggregates(ctx context.Context, w *models.Wallet) error
}

// LedgerStore runs fn as one atomic unit. Any error returned by fn rolls the
// whole unit back.
type LedgerStore interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// EntityFetcher loads records of one collection by id. Implementations accept
// at most a handful of ids per call.
type EntityFetcher interface {
	FetchByIDs(ctx context.Context, collection string, ids []uuid.UUID) ([]models.RelatedEntity, error)
}

// UserDirectory resolves user ids to display summaries.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error)
}
