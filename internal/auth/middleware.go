package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	contextUserID    = "userId"
	contextExpiresAt = "tokenExpiresAt"
)

// Middleware rejects requests without a valid token and stores the user ID
// in the gin context. EventSource and WebSocket clients cannot set headers,
// so ?token= is accepted as well.
func Middleware(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := issuer.Parse(extractToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		c.Set(contextUserID, claims.UserID)
		c.Set(contextExpiresAt, claims.ExpiresAt)
		c.Next()
	}
}

// UserID returns the authenticated user, or "" outside Middleware
func UserID(c *gin.Context) string {
	return c.GetString(contextUserID)
}

// ExpiresAt returns when the request's token expires
func ExpiresAt(c *gin.Context) time.Time {
	return c.GetTime(contextExpiresAt)
}

func extractToken(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
