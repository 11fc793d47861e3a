package http

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"castenobar/internal/account"
	"castenobar/internal/models"
)

const (
	ctxSession    = "session"
	ctxIdentityID = "identityID"
)

func AuthMiddleware(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "authorization_header_missing"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "authorization_header_invalid"})
			return
		}

		sess, err := accounts.Verify(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, account.ErrInvalidToken) {
				c.AbortWithStatusJSON(401, gin.H{"error": "invalid_session"})
				return
			}
			c.AbortWithStatusJSON(500, gin.H{"error": "session_lookup_failed"})
			return
		}

		c.Set(ctxSession, sess)
		c.Set(ctxIdentityID, sess.Identity.ID)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *models.Session {
	return c.MustGet(ctxSession).(*models.Session)
}

func identityID(c *gin.Context) string {
	return c.MustGet(ctxIdentityID).(string)
}
