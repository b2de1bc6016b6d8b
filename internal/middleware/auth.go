package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"relay-service/internal/store"
)

// Auth validates the Authorization header against the identity store and
// stashes the resolved user id in the request context. Forged or stale
// tokens are rejected outright, never mapped to a guest identity.
func Auth(identity *store.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		user, err := identity.ResolveToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", user.UID)
		c.Next()
	}
}
