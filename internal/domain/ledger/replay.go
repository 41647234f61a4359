package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/models"
)

// Aggregates are the wallet fields that can be derived from history.
type Aggregates struct {
	BalanceUSD    decimal.Decimal `json:"balance_usd"`
	PendingPayout decimal.Decimal `json:"pending_payout"`
	TotalEarned   decimal.Decimal `json:"total_earned"`
	TotalPaidOut  decimal.Decimal `json:"total_paid_out"`
}

// AggregatesOf extracts the stored aggregates of w.
func AggregatesOf(w models.Wallet) Aggregates {
	return Aggregates{
		BalanceUSD:    w.BalanceUSD,
		PendingPayout: w.PendingPayout,
		TotalEarned:   w.TotalEarned,
		TotalPaidOut:  w.TotalPaidOut,
	}
}

// Replay derives the aggregates of a wallet that opened at zero from its full
// transaction history. A payout request reserves its amount out of the
// balance when created; a rejection returns it.
func Replay(txs []models.WalletTransaction) Aggregates {
	var a Aggregates
	for _, tx := range txs {
		amount := valueobject.USD(tx.AmountUSD)
		switch tx.TransactionType {
		case valueobject.TransactionTypeEarning:
			if tx.Status == valueobject.TransactionStatusApproved {
				a.BalanceUSD = a.BalanceUSD.Add(amount)
				a.TotalEarned = a.TotalEarned.Add(decimal.Max(amount, decimal.Zero))
			}
		case valueobject.TransactionTypePayoutRequest:
			magnitude := amount.Abs()
			switch {
			case tx.Status.ReservesPayout():
				a.BalanceUSD = a.BalanceUSD.Sub(magnitude)
				a.PendingPayout = a.PendingPayout.Add(magnitude)
			case tx.Status == valueobject.TransactionStatusApproved:
				a.BalanceUSD = a.BalanceUSD.Sub(magnitude)
				a.TotalPaidOut = a.TotalPaidOut.Add(magnitude)
			}
		}
	}
	return a
}

// Drift is the difference stored - derived for each aggregate.
type Drift struct {
	Field   string          `json:"field"`
	Stored  decimal.Decimal `json:"stored"`
	Derived decimal.Decimal `json:"derived"`
	Delta   decimal.Decimal `json:"delta"`
}

// Compare lists every aggregate whose stored value differs from the derived
// one.
func Compare(stored, derived Aggregates) []Drift {
	pairs := []struct {
		field string
		s, d  decimal.Decimal
	}{
		{"balance_usd", stored.BalanceUSD, derived.BalanceUSD},
		{"pending_payout", stored.PendingPayout, derived.PendingPayout},
		{"total_earned", stored.TotalEarned, derived.TotalEarned},
		{"total_paid_out", stored.TotalPaidOut, derived.TotalPaidOut},
	}

	var drifts []Drift
	for _, p := range pairs {
		if !p.s.Equal(p.d) {
			drifts = append(drifts, Drift{Field: p.field, Stored: p.s, Derived: p.d, Delta: p.s.Sub(p.d)})
		}
	}
	return drifts
}
