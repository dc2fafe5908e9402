package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIKeyMiddleware struct {
	required bool
	keys     []string
}

func NewAPIKeyMiddleware(required bool, keys []string) *APIKeyMiddleware {
	return &APIKeyMiddleware{required: required, keys: keys}
}

func (m *APIKeyMiddleware) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.required {
			c.Next()
			return
		}

		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}

		if !m.valid(apiKey) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Next()
	}
}

func (m *APIKeyMiddleware) valid(apiKey string) bool {
	for _, key := range m.keys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			return true
		}
	}
	return false
}
