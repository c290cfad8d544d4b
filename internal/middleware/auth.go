// internal/middleware/auth.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"pharmaguard-back/internal/auth"
)

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "jwtToken"

// AuthMiddleware validates the session token, reading the cookie first and
// falling back to the Authorization header for clients that cannot use
// cookies. The verified user id is attached to the context as "userID".
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(SessionCookieName)
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized access - no token provided"})
			return
		}

		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			switch {
			case errors.Is(err, jwt.ErrTokenExpired),
				errors.Is(err, jwt.ErrTokenSignatureInvalid),
				errors.Is(err, jwt.ErrTokenMalformed),
				errors.Is(err, auth.ErrInvalidToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized access"})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
			return
		}

		c.Set("userID", claims.UserID)
		c.Next()
	}
}
