package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// bearerToken extracts the secret token from the Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if auth == "" || !strings.HasPrefix(auth, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
	return token, token != ""
}

// AdminRequired guards management routes behind the configured admin key.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Admin-Api-Key")
		if s.cfg.AdminAPIKey == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.AdminAPIKey)) != 1 {
			AbortWithError(c, ErrAdminKey)
			return
		}
		c.Next()
	}
}
