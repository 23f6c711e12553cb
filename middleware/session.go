package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Session-ID"
	SessionQuery  = "session"
	sessionKey    = "session_id"
)

// SessionMiddleware resolves the browser session of a request from the X-Session-ID
// header or the session query parameter, minting a new id when neither is present.
// The id is echoed back in the response header.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(SessionHeader))
		if id == "" {
			id = strings.TrimSpace(c.Query(SessionQuery))
		}
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(sessionKey, id)
		c.Header(SessionHeader, id)
		c.Next()
	}
}

// SessionID returns the id stored by SessionMiddleware.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
