package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("repository: %w", ErrWalletNotFound)

	assert.True(t, errors.Is(wrapped, ErrWalletNotFound))
	assert.False(t, errors.Is(wrapped, ErrTransactionNotFound))
	assert.True(t, errors.Is(wrapped, &AppError{Code: ErrCodeNotFound}))
	assert.True(t, IsNotFound(wrapped))
}

func TestHTTPStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrCodeValidation, "x"), http.StatusBadRequest},
		{New(ErrCodeInvalidTransition, "x"), http.StatusConflict},
		{New(ErrCodeLedgerInconsistency, "x"), http.StatusConflict},
		{Wrap(errors.New("conn reset"), ErrCodeTransientStore, "x"), http.StatusServiceUnavailable},
		{ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusOf(tt.err), tt.err.Error())
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "internal server error", UserMessage(errors.New("pq: password authentication failed")))
	assert.Contains(t, UserMessage(New(ErrCodeInvalidTransition, "transaction is approved")), "already processed")
	assert.NotContains(t, UserMessage(Wrap(errors.New("dial tcp 10.0.0.1"), ErrCodeTransientStore, "store failed")), "10.0.0.1")
	assert.Equal(t, "hold reason is required", UserMessage(New(ErrCodeValidation, "hold reason is required")))
	assert.Empty(t, UserMessage(nil))
}
