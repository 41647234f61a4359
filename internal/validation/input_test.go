package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
)

func TestValidateHoldReason(t *testing.T) {
	tests := []struct {
		name    string
		reason  string
		wantErr bool
	}{
		{"plain", "waiting for KYC documents", false},
		{"multiline", "bank rejected\nretry next week", false},
		{"empty", "", true},
		{"blank", " \t ", true},
		{"too long", strings.Repeat("a", MaxHoldReasonLength+1), true},
		{"padded to the limit", "  " + strings.Repeat("a", MaxHoldReasonLength) + "  ", false},
		{"control char", "hold\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHoldReason(tt.reason)
			if tt.wantErr {
				assert.True(t, apperror.IsValidation(err), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateNotes(t *testing.T) {
	assert.NoError(t, ValidateNotes(nil))

	ok := "session 2 of 10"
	assert.NoError(t, ValidateNotes(&ok))

	long := strings.Repeat("é", MaxNotesLength+1)
	assert.True(t, apperror.IsValidation(ValidateNotes(&long)))
}

func TestValidateLength(t *testing.T) {
	assert.NoError(t, ValidateLength("field", "abc", 0, 0))
	assert.Error(t, ValidateLength("field", "ab", 3, 0))
	assert.Error(t, ValidateLength("field", "abcd", 0, 3))
}
