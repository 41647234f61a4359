package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/payout-ledger/internal/domain/valueobject"
)

// WalletTransaction is one entry of the append-only ledger. Only Status and
// the audit fields change after creation.
type WalletTransaction struct {
	ID                uuid.UUID                     `db:"id" json:"id"`
	WalletID          uuid.UUID                     `db:"wallet_id" json:"wallet_id"`
	UserID            uuid.UUID                     `db:"user_id" json:"user_id"`
	TransactionType   valueobject.TransactionType   `db:"transaction_type" json:"transaction_type"`
	AmountUSD         decimal.Decimal               `db:"amount_usd" json:"amount_usd"`
	Status            valueobject.TransactionStatus `db:"status" json:"status"`
	RelatedEntityType *string                       `db:"related_entity_type" json:"related_entity_type,omitempty"`
	RelatedEntityID   *uuid.UUID                    `db:"related_entity_id" json:"related_entity_id,omitempty"`
	Notes             *string                       `db:"notes" json:"notes,omitempty"`
	ApprovedBy        *uuid.UUID                    `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt        *time.Time                    `db:"approved_at" json:"approved_at,omitempty"`
	CreatedDate       time.Time                     `db:"created_date" json:"created_date"`
}

// Related returns the tagged reference to the record that produced the
// transaction, if any.
func (t *WalletTransaction) Related() (valueobject.RelatedRef, bool) {
	if t.RelatedEntityType == nil || t.RelatedEntityID == nil {
		return valueobject.RelatedRef{}, false
	}
	ref := valueobject.RelatedRef{Kind: valueobject.RelatedKind(*t.RelatedEntityType), ID: *t.RelatedEntityID}
	if ref.IsZero() || !ref.Kind.IsValid() {
		return valueobject.RelatedRef{}, false
	}
	return ref, true
}

// Magnitude is |amount_usd|.
func (t *WalletTransaction) Magnitude() decimal.Decimal {
	return t.AmountUSD.Abs()
}

// TransitionAudit is written together with every status change.
type TransitionAudit struct {
	ApprovedBy uuid.UUID
	ApprovedAt time.Time
	Notes      *string
}
