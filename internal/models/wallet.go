package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet user types.
const (
	WalletUserTypeAgent  = "agent"
	WalletUserTypeTutor  = "tutor"
	WalletUserTypeVendor = "vendor"
	WalletUserTypeOther  = "other"
)

// Wallet is the aggregate financial record of one earning user.
type Wallet struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	UserType       string          `db:"user_type" json:"user_type"`
	BalanceUSD     decimal.Decimal `db:"balance_usd" json:"balance_usd"`
	PendingPayout  decimal.Decimal `db:"pending_payout" json:"pending_payout"`
	TotalEarned    decimal.Decimal `db:"total_earned" json:"total_earned"`
	TotalPaidOut   decimal.Decimal `db:"total_paid_out" json:"total_paid_out"`
	LastPayoutDate *time.Time      `db:"last_payout_date" json:"last_payout_date,omitempty"`
	PaymentDetails *string         `db:"payment_details" json:"payment_details,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// WalletSort selects the ordering of a wallet listing.
type WalletSort string

const (
	WalletSortNone        WalletSort = ""
	WalletSortBalanceDesc WalletSort = "balance_usd_desc"
)
