package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/logger"
)

// ErrorHandler converts errors attached with c.Error into the JSON error body
// used across the API. Only the last error is reported. Handlers that already
// wrote a response are left alone and the error is only logged.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log := logger.Named("http").With(
			"request_id", c.GetString(requestIDKey),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)

		appErr := apperrors.ErrInternalServer
		var target *apperrors.AppError
		if errors.As(err, &target) {
			appErr = target
			if appErr.Internal != nil {
				log.Errorw("app error", "code", appErr.Code, "internal", appErr.Internal.Error())
			}
		} else {
			log.Errorw("unexpected error", "error", err.Error())
		}

		if c.Writer.Written() {
			return
		}
		writeError(c, appErr.StatusCode, appErr.Code, appErr.Message)
	}
}

// writeError aborts the request with the standard {"error":{code,message}} body.
func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
