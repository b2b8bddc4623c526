// internal/interfaces/http/middleware/session.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/session"
)

const sessionIDKey = "session_id"

// Session resolves the shopper session from the session cookie or a bearer token.
// Missing, invalid or expired tokens start a fresh session and set a new cookie.
func Session(cfg config.SessionConfig, manager *session.Manager, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(cfg.CookieName)
		if token == "" {
			token = session.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		}

		if token != "" {
			if sessionID, err := manager.Validate(token); err == nil {
				c.Set(sessionIDKey, sessionID)
				c.Next()
				return
			}
		}

		sessionID, token, err := manager.NewSession()
		if err != nil {
			log.WithError(err).Error("Failed to start shopper session")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to start session",
			})
			c.Abort()
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, token, int(manager.TTL().Seconds()), "/", "", cfg.Secure, true)
		c.Header("X-Session-Token", token)
		c.Set(sessionIDKey, sessionID)

		c.Next()
	}
}

// GetSessionIDFromContext extracts the shopper session id from gin context
func GetSessionIDFromContext(c *gin.Context) (string, bool) {
	sessionID, exists := c.Get(sessionIDKey)
	if !exists {
		return "", false
	}
	id, ok := sessionID.(string)
	return id, ok && id != ""
}
