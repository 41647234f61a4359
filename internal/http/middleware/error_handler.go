package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/payout-ledger/internal/logger"
	"github.com/ignatzorin/payout-ledger/internal/pkg/apperror"
)

// ErrorHandler logs the last error attached with c.Error and renders it when
// the handler has not written a response. Internal causes are never sent to
// the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := apperror.HTTPStatusOf(err)
		code := apperror.CodeOf(err)

		entry := logger.Log.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"status": status,
			"code":   code,
		}).WithError(err)
		if status >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Warn("request rejected")
		}

		if !c.Writer.Written() {
			c.JSON(status, gin.H{"error": string(code), "message": apperror.UserMessage(err)})
		}
	}
}
