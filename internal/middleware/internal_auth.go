package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// InternalKeyAuth validates the X-API-Key header against the key shared with
// trusted message gateways. An empty key disables the internal endpoints.
func InternalKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			writeError(c, http.StatusServiceUnavailable, "INTERNAL_API_NOT_CONFIGURED", "Internal endpoints are not configured")
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			writeError(c, http.StatusUnauthorized, "INVALID_API_KEY", "Invalid or missing API key")
			return
		}
		c.Next()
	}
}
