package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserKey is the gin context key holding the authenticated user id.
const UserKey = "user_id"

// BearerToken extracts the token from the Authorization header, falling back
// to the token query parameter used by websocket clients.
func BearerToken(r *http.Request) string {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		tokenString = r.Header.Get("token")
	}
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "Bearer ") {
		tokenString = tokenString[7:]
	}
	return strings.TrimSpace(tokenString)
}

// Middleware rejects requests without a valid token and stores the user id
// under UserKey. onReject renders the failure.
func Middleware(tokens *TokenService, onReject func(c *gin.Context, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := tokens.ValidateToken(BearerToken(c.Request))
		if err != nil {
			onReject(c, err)
			c.Abort()
			return
		}
		c.Set(UserKey, userID)
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(UserKey)
}
