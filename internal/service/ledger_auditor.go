package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/payout-ledger/internal/domain/ledger"
	domainrepo "github.com/ignatzorin/payout-ledger/internal/domain/repository"
	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/dto"
	"github.com/ignatzorin/payout-ledger/internal/logger"
)

// LedgerAuditor checks stored wallet aggregates against the transaction log.
// It never writes.
type LedgerAuditor struct {
	wallets domainrepo.WalletReader
	txs     domainrepo.TransactionReader
	now     func() time.Time
}

func NewLedgerAuditor(wallets domainrepo.WalletReader, txs domainrepo.TransactionReader) *LedgerAuditor {
	return &LedgerAuditor{wallets: wallets, txs: txs, now: time.Now}
}

func (a *LedgerAuditor) Reconcile(ctx context.Context, walletID uuid.UUID) (*dto.ReconciliationReport, error) {
	wallet, err := a.wallets.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	history, err := a.txs.ListWalletTransactions(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("ledger auditor: history of %s: %w", walletID, err)
	}

	stored := ledger.AggregatesOf(*wallet)
	derived := ledger.Replay(history)
	drifts := ledger.Compare(stored, derived)

	invariantHolds := !stored.BalanceUSD.IsNegative() &&
		!stored.PendingPayout.IsNegative() &&
		stored.PendingPayout.Equal(derived.PendingPayout)

	report := &dto.ReconciliationReport{
		WalletID:       walletID,
		Transactions:   len(history),
		Consistent:     len(drifts) == 0,
		InvariantHolds: invariantHolds,
		Drift:          make([]dto.DriftView, 0, len(drifts)),
		CheckedAt:      a.now().UTC(),
	}
	for _, d := range drifts {
		report.Drift = append(report.Drift, dto.DriftView{
			Field:   d.Field,
			Stored:  d.Stored.StringFixed(valueobject.USDScale),
			Derived: d.Derived.StringFixed(valueobject.USDScale),
			Delta:   d.Delta.StringFixed(valueobject.USDScale),
		})
	}

	if !report.InvariantHolds {
		logger.Log.WithFields(logrus.Fields{
			"wallet_id": walletID,
			"drift":     len(drifts),
		}).Error("ledger auditor: wallet invariant violated")
	}
	return report, nil
}
