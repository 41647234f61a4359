package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
	"github.com/ignatzorin/payout-ledger/internal/service"
)

// gin.Context keys.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AuthMiddleware verifies the bearer access token.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			abortWithAppError(c, apperror.ErrUnauthorized)
			return
		}

		userID, role, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || userID == uuid.Nil {
			abortWithAppError(c, apperror.New(apperror.ErrCodeUnauthorized, "invalid token"))
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// RequireRole lets the request through only when the token role is one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRoleKey)
		if !slices.Contains(roles, role) {
			abortWithAppError(c, apperror.ErrForbidden)
			return
		}
		c.Next()
	}
}

func abortWithAppError(c *gin.Context, err *apperror.AppError) {
	status := err.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, gin.H{"error": string(err.Code), "message": err.Message})
}
