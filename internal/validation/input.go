package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
)

// Free-text limits.
const (
	MaxHoldReasonLength = 500
	MaxNotesLength      = 1000
)

// ValidateLength checks the rune length of value. A zero bound is not checked.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return apperror.Newf(apperror.ErrCodeValidation, "%s must be at least %d characters", fieldName, min)
	}
	if max > 0 && length > max {
		return apperror.Newf(apperror.ErrCodeValidation, "%s must be at most %d characters", fieldName, max)
	}
	return nil
}

func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperror.Newf(apperror.ErrCodeValidation, "%s is required", fieldName)
	}
	return nil
}

// ValidateHoldReason checks the reason an admin gives for holding a payout.
func ValidateHoldReason(reason string) error {
	if err := ValidateNonEmpty("hold reason", reason); err != nil {
		return err
	}
	if err := ValidateLength("hold reason", strings.TrimSpace(reason), 0, MaxHoldReasonLength); err != nil {
		return err
	}
	return rejectControlChars("hold reason", reason)
}

// ValidateNotes checks optional notes attached to an earning.
func ValidateNotes(notes *string) error {
	if notes == nil {
		return nil
	}
	if err := ValidateLength("notes", *notes, 0, MaxNotesLength); err != nil {
		return err
	}
	return rejectControlChars("notes", *notes)
}

// rejectControlChars allows newlines and tabs only.
func rejectControlChars(fieldName, value string) error {
	for _, r := range value {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return apperror.Newf(apperror.ErrCodeValidation, "%s contains control characters", fieldName)
		}
	}
	return nil
}
