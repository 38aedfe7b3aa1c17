package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	apperrors "github.com/wms-platform/fulfillment-service/pkg/errors"
)

// ErrorHandler converts errors attached to the Gin context into
// structured JSON error responses.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		appErr := apperrors.FromError(err)

		if appErr.HTTPStatus >= 500 {
			logger.Error("Request failed",
				"code", appErr.Code,
				"message", appErr.Message,
				"path", c.Request.URL.Path,
				"error", err.Error(),
			)
		}

		if c.Writer.Written() {
			return
		}

		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		if requestID, ok := c.Get(ContextKeyRequestID); ok {
			body["requestId"] = requestID
		}

		c.JSON(appErr.HTTPStatus, body)
	}
}

// AbortWithError records an error on the context and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
