package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/models"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/validation"
)

// Operation is an admin decision on a single ledger transaction.
type Operation string

const (
	OpApproveEarning Operation = "approve_earning"
	OpApprovePayout  Operation = "approve_payout"
	OpRejectPayout   Operation = "reject_payout"
	OpHoldPayout     Operation = "hold_payout"
	OpReleaseHold    Operation = "release_hold"
)

// HoldNotePrefix prefixes the reason stored in notes when a payout is held.
const HoldNotePrefix = "HOLD: "

type rule struct {
	txType valueobject.TransactionType
	from   valueobject.TransactionStatus
	to     valueobject.TransactionStatus
}

var rules = map[Operation]rule{
	OpApproveEarning: {valueobject.TransactionTypeEarning, valueobject.TransactionStatusPending, valueobject.TransactionStatusApproved},
	OpApprovePayout:  {valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, valueobject.TransactionStatusApproved},
	OpRejectPayout:   {valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, valueobject.TransactionStatusRejected},
	OpHoldPayout:     {valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusPending, valueobject.TransactionStatusHold},
	OpReleaseHold:    {valueobject.TransactionTypePayoutRequest, valueobject.TransactionStatusHold, valueobject.TransactionStatusPending},
}

func (op Operation) IsValid() bool {
	_, ok := rules[op]
	return ok
}

// Delta is the change applied to a wallet's aggregates by one transition.
type Delta struct {
	Balance       decimal.Decimal
	PendingPayout decimal.Decimal
	TotalEarned   decimal.Decimal
	TotalPaidOut  decimal.Decimal
	StampPayout   bool
}

func (d Delta) IsZero() bool {
	return d.Balance.IsZero() && d.PendingPayout.IsZero() && d.TotalEarned.IsZero() && d.TotalPaidOut.IsZero() && !d.StampPayout
}

// Transition is a validated status change of one transaction together with
// its wallet delta.
type Transition struct {
	Op    Operation
	From  valueobject.TransactionStatus
	To    valueobject.TransactionStatus
	Delta Delta
	Notes *string
}

// ValidateRequest checks the arguments of op that do not depend on stored
// state.
func ValidateRequest(op Operation, reason string) error {
	if !op.IsValid() {
		return apperror.Newf(apperror.ErrCodeValidation, "unknown operation %q", op)
	}
	if op == OpHoldPayout {
		return validation.ValidateHoldReason(reason)
	}
	return nil
}

// Plan checks that op is allowed for tx in its current state and computes
// the resulting transition.
func Plan(op Operation, tx *models.WalletTransaction, reason string) (Transition, error) {
	if err := ValidateRequest(op, reason); err != nil {
		return Transition{}, err
	}
	r := rules[op]

	if tx.TransactionType != r.txType {
		return Transition{}, apperror.Newf(apperror.ErrCodeInvalidTransition,
			"%s is not allowed for a %s transaction", op, tx.TransactionType)
	}
	if tx.Status != r.from {
		return Transition{}, apperror.Newf(apperror.ErrCodeInvalidTransition,
			"transaction is %s, %s requires %s", tx.Status, op, r.from)
	}
	if !r.from.CanTransitionTo(r.txType, r.to) {
		return Transition{}, apperror.Newf(apperror.ErrCodeInvalidTransition, "%s -> %s is not a valid transition", r.from, r.to)
	}

	t := Transition{Op: op, From: r.from, To: r.to}
	amount := valueobject.USD(tx.AmountUSD)
	magnitude := amount.Abs()

	switch op {
	case OpApproveEarning:
		t.Delta.Balance = amount
		t.Delta.TotalEarned = decimal.Max(amount, decimal.Zero)
	case OpApprovePayout:
		t.Delta.PendingPayout = magnitude.Neg()
		t.Delta.TotalPaidOut = magnitude
		t.Delta.StampPayout = true
	case OpRejectPayout:
		t.Delta.PendingPayout = magnitude.Neg()
		t.Delta.Balance = magnitude
	case OpHoldPayout:
		note := HoldNotePrefix + strings.TrimSpace(reason)
		t.Notes = &note
	case OpReleaseHold:
	}

	return t, nil
}

// ApplyTo returns w with the delta applied. It refuses results that would
// leave balance_usd or pending_payout negative.
func (d Delta) ApplyTo(w models.Wallet, now time.Time) (models.Wallet, error) {
	next := w
	next.BalanceUSD = valueobject.USD(w.BalanceUSD.Add(d.Balance))
	next.PendingPayout = valueobject.USD(w.PendingPayout.Add(d.PendingPayout))
	next.TotalEarned = valueobject.USD(w.TotalEarned.Add(d.TotalEarned))
	next.TotalPaidOut = valueobject.USD(w.TotalPaidOut.Add(d.TotalPaidOut))

	if next.BalanceUSD.IsNegative() {
		return w, apperror.Newf(apperror.ErrCodeLedgerInconsistency,
			"balance_usd would become %s", next.BalanceUSD.StringFixed(valueobject.USDScale))
	}
	if next.PendingPayout.IsNegative() {
		return w, apperror.Newf(apperror.ErrCodeLedgerInconsistency,
			"pending_payout would become %s", next.PendingPayout.StringFixed(valueobject.USDScale))
	}

	if d.StampPayout {
		stamp := now
		next.LastPayoutDate = &stamp
	}
	if !d.IsZero() {
		next.UpdatedAt = now
	}
	return next, nil
}
