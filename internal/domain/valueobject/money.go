package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
)

// USDScale is the number of fractional digits kept for stored amounts.
const USDScale = 2

// USD rounds v to cent precision.
func USD(v decimal.Decimal) decimal.Decimal {
	return v.Round(USDScale)
}

// ParseUSD parses a decimal string such as "12.50" into a cent-precision amount.
func ParseUSD(v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, apperror.Wrap(err, apperror.ErrCodeValidation, fmt.Sprintf("invalid amount %q", v))
	}
	if !d.Equal(d.Round(USDScale)) {
		return decimal.Zero, apperror.Newf(apperror.ErrCodeValidation, "amount %q has more than %d decimal places", v, USDScale)
	}
	return USD(d), nil
}

// NewPositiveUSD validates that amount is strictly positive.
func NewPositiveUSD(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "amount must be positive")
	}
	return USD(amount), nil
}

// FormatUSD renders an amount for display, e.g. "$1234.50".
func FormatUSD(v decimal.Decimal) string {
	if v.IsNegative() {
		return "-$" + v.Abs().StringFixed(USDScale)
	}
	return "$" + v.StringFixed(USDScale)
}
