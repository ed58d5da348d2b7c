package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"stocks-trader/session"
)

// UserIDKey is the gin context key RequireSession stores the user id under.
const UserIDKey = "user_id"

// SessionResolver maps a session token to the user it belongs to.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (uint, error)
}

// RequireSession redirects to /login unless the session cookie resolves to a
// user.
func RequireSession(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(session.CookieName)
		if err != nil || token == "" {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		userID, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the id set by RequireSession.
func UserID(c *gin.Context) uint {
	return c.MustGet(UserIDKey).(uint)
}
