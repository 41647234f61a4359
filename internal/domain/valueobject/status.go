package valueobject

import "github.com/ignatzorin/payout-ledger/internal/pkg/apperror"

type TransactionType string

const (
	TransactionTypeEarning       TransactionType = "earning"
	TransactionTypePayoutRequest TransactionType = "payout_request"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeEarning, TransactionTypePayoutRequest:
		return true
	}
	return false
}

func NewTransactionType(v string) (TransactionType, error) {
	t := TransactionType(v)
	if !t.IsValid() {
		return "", apperror.Newf(apperror.ErrCodeValidation, "unknown transaction type %q", v)
	}
	return t, nil
}

type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusApproved TransactionStatus = "approved"
	TransactionStatusRejected TransactionStatus = "rejected"
	TransactionStatusHold     TransactionStatus = "hold"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusApproved, TransactionStatusRejected, TransactionStatusHold:
		return true
	}
	return false
}

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusApproved || s == TransactionStatusRejected
}

// CanTransitionTo reports whether a transaction of type t may move from s to next.
// Earnings only ever go pending -> approved. Held payouts must be released
// back to pending before a final decision.
func (s TransactionStatus) CanTransitionTo(t TransactionType, next TransactionStatus) bool {
	transitions := map[TransactionType]map[TransactionStatus][]TransactionStatus{
		TransactionTypeEarning: {
			TransactionStatusPending: {TransactionStatusApproved},
		},
		TransactionTypePayoutRequest: {
			TransactionStatusPending: {TransactionStatusApproved, TransactionStatusRejected, TransactionStatusHold},
			TransactionStatusHold:    {TransactionStatusPending},
		},
	}

	allowed, ok := transitions[t][s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

func NewTransactionStatus(v string) (TransactionStatus, error) {
	s := TransactionStatus(v)
	if !s.IsValid() {
		return "", apperror.Newf(apperror.ErrCodeValidation, "unknown transaction status %q", v)
	}
	return s, nil
}

// ReservesPayout reports whether a payout request in status s still holds
// funds in the wallet's pending_payout.
func (s TransactionStatus) ReservesPayout() bool {
	return s == TransactionStatusPending || s == TransactionStatusHold
}
