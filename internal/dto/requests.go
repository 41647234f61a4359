package dto

import (
	"github.com/google/uuid"
)

// HoldPayoutRequest is the body of the hold action.
type HoldPayoutRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RecordEarningRequest is submitted by producers of commissions and fees.
// Amount is a decimal string in USD with at most two fractional digits.
type RecordEarningRequest struct {
	WalletID          uuid.UUID  `json:"wallet_id" binding:"required"`
	Amount            string     `json:"amount_usd" binding:"required"`
	RelatedEntityType string     `json:"related_entity_type"`
	RelatedEntityID   *uuid.UUID `json:"related_entity_id"`
	Notes             *string    `json:"notes"`
}
