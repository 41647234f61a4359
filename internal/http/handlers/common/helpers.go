package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/payout-ledger/internal/dto"
	"github.com/ignatzorin/payout-ledger/internal/http/middleware"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
)

// ErrInvalidUUID is returned when a path parameter is not a UUID.
var ErrInvalidUUID = apperror.New(apperror.ErrCodeBadRequest, "invalid UUID")

// CurrentUserID extracts the authenticated user id set by AuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}
	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}
	return userID, nil
}

func CurrentUserRole(c *gin.Context) (string, error) {
	role, ok := c.Get(middleware.ContextRoleKey)
	if !ok {
		return "", apperror.ErrUnauthorized
	}
	s, ok := role.(string)
	if !ok {
		return "", apperror.ErrUnauthorized
	}
	return s, nil
}

// ParseUUIDParam parses the path parameter paramName.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, apperror.Newf(apperror.ErrCodeBadRequest, "parameter %s is required", paramName)
	}
	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}
	return parsed, nil
}

// BindAndValidate binds a JSON body and reports binding failures as
// validation errors.
func BindAndValidate(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "invalid request body: "+err.Error())
	}
	return nil
}

// RespondError writes err using its AppError code and status. The error is
// also attached to the context for ErrorHandler to log.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperror.HTTPStatusOf(err), dto.ErrorResponse{
		Error:   string(apperror.CodeOf(err)),
		Message: apperror.UserMessage(err),
	})
}

func RespondJSON(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}
