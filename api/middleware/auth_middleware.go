package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vigil-ai/vigil-backend/config"
	"github.com/vigil-ai/vigil-backend/internal/auth"
)

// AuthMiddleware creates a gin middleware for checking JWT authentication
// only. It guards the dashboard-scoped routes where a device key must not
// be accepted.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			err := errors.New("authorization header required")
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			err := errors.New("authorization header format must be Bearer {token}")
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		tokenString := parts[1]

		userId, err := auth.ValidateJWT(tokenString, cfg.JWTSecret)
		if err != nil {
			customLog.Printf("AuthMiddleware: Token validation failed: %v", err)
			statusCode := http.StatusUnauthorized
			errMsg := "Invalid token"
			switch {
			case errors.Is(err, auth.ErrTokenMalformed):
				errMsg = err.Error()
			case errors.Is(err, auth.ErrTokenExpired):
				errMsg = err.Error()
			}

			_ = c.Error(err)
			c.AbortWithStatusJSON(statusCode, gin.H{"error": errMsg})
			return
		}

		c.Set(principalContextKey, Principal{UserID: userId})

		c.Next()
	}
}
