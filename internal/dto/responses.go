package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
	"github.com/ignatzorin/payout-ledger/internal/models"
)

// WalletView is a wallet joined with its owner.
type WalletView struct {
	models.Wallet
	Owner *models.UserSummary `json:"owner,omitempty"`
}

// RelatedContext describes the record an earning came from. When the record
// could not be loaded, Resolved is false and Label holds the raw reference.
type RelatedContext struct {
	Kind       valueobject.RelatedKind `json:"kind"`
	ID         uuid.UUID               `json:"id"`
	Resolved   bool                    `json:"resolved"`
	Label      string                  `json:"label"`
	StudentID  *uuid.UUID              `json:"student_id,omitempty"`
	Student    *models.UserSummary     `json:"student,omitempty"`
	OccurredAt *time.Time              `json:"occurred_at,omitempty"`
}

// EarningView is a pending earning awaiting approval.
type EarningView struct {
	models.WalletTransaction
	Owner   *models.UserSummary `json:"owner,omitempty"`
	Related *RelatedContext     `json:"related,omitempty"`
}

// PayoutView is a payout request that is pending or on hold.
type PayoutView struct {
	models.WalletTransaction
	Owner           *models.UserSummary `json:"owner,omitempty"`
	RequestedAmount string              `json:"requested_amount"`
	PaymentDetails  *string             `json:"payment_details,omitempty"`
}

// ApprovalSnapshot is everything the admin approval screen shows.
type ApprovalSnapshot struct {
	Wallets         []WalletView  `json:"wallets"`
	WalletsSorted   bool          `json:"wallets_sorted"`
	PendingEarnings []EarningView `json:"pending_earnings"`
	PayoutRequests  []PayoutView  `json:"payout_requests"`
	Warnings        []string      `json:"warnings,omitempty"`
	GeneratedAt     time.Time     `json:"generated_at"`
}

// DriftView is one aggregate whose stored value differs from the replayed one.
type DriftView struct {
	Field   string `json:"field"`
	Stored  string `json:"stored"`
	Derived string `json:"derived"`
	Delta   string `json:"delta"`
}

// ReconciliationReport compares a wallet with a replay of its history.
// Consistent means no aggregate drifted from a zero-opening replay.
// InvariantHolds only checks non-negativity and that pending_payout matches
// the open payout requests, which holds regardless of opening balances.
type ReconciliationReport struct {
	WalletID       uuid.UUID   `json:"wallet_id"`
	Transactions   int         `json:"transactions"`
	Consistent     bool        `json:"consistent"`
	InvariantHolds bool        `json:"invariant_holds"`
	Drift          []DriftView `json:"drift"`
	CheckedAt      time.Time   `json:"checked_at"`
}

// LedgerEvent is pushed to admin consoles after each applied decision.
type LedgerEvent struct {
	Operation     string                        `json:"operation"`
	TransactionID uuid.UUID                     `json:"transaction_id"`
	WalletID      uuid.UUID                     `json:"wallet_id"`
	Status        valueobject.TransactionStatus `json:"status"`
	AdminID       uuid.UUID                     `json:"admin_id"`
	At            time.Time                     `json:"at"`
}

// LedgerUpdatedEvent is the websocket event name for LedgerEvent.
const LedgerUpdatedEvent = "ledger.updated"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
