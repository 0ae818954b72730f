package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Context keys set by RequireIdentity.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// RequireIdentity reads the caller identity forwarded by the gateway.
// Authentication itself happens upstream; this server only needs to know who
// is acting.
func RequireIdentity(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
		return
	}
	username := c.GetHeader("X-Username")
	if username == "" {
		username = userID
	}
	c.Set(ContextUserID, userID)
	c.Set(ContextUsername, username)
	c.Next()
}
