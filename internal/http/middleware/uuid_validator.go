package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
)

// UUIDValidator rejects requests whose path parameter paramName is not a UUID.
// Usage: router.GET("/wallets/:id", UUIDValidator("id"), handler.GetWallet)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			abortWithAppError(c, apperror.Newf(apperror.ErrCodeBadRequest, "parameter %s is required", paramName))
			return
		}
		if id, err := uuid.Parse(idStr); err != nil || id == uuid.Nil {
			abortWithAppError(c, apperror.Newf(apperror.ErrCodeBadRequest, "parameter %s must be a valid UUID", paramName))
			return
		}
		c.Next()
	}
}
