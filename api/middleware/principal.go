package middleware

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vigil-ai/vigil-backend/config"
	"github.com/vigil-ai/vigil-backend/internal/auth"
	"github.com/vigil-ai/vigil-backend/internal/domain"
	"github.com/vigil-ai/vigil-backend/internal/logger"
	"github.com/vigil-ai/vigil-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

// APIKeyHeader carries the device credential as "<prefix>.<secret>".
const APIKeyHeader = "X-Api-Key"

const principalContextKey = "principal"

// Principal is the identity resolved once per request: the owning user plus
// the device credential when the request authenticated with an API key.
// Key is nil for bearer-token (dashboard) requests.
type Principal struct {
	UserID string
	Key    *domain.APIKey
}

// IsDevice reports whether the request authenticated with an API key.
func (p Principal) IsDevice() bool {
	return p.Key != nil
}

// PrincipalFrom returns the principal Authenticate stored on the context.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// Authenticate resolves the request identity. The X-Api-Key header is
// checked first; absent that, a Bearer JWT. Requests carrying neither, a
// revoked key, or a bad secret are rejected.
func Authenticate(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader(APIKeyHeader); header != "" {
			key, err := resolveAPIKey(c, db, header)
			if err != nil {
				customLog.Warnf("Authenticate: API key authentication failed: %v", err)
				_ = c.Error(err)
				c.Abort()
				return
			}
			c.Set(principalContextKey, Principal{UserID: key.OwnerId, Key: key})
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			_ = c.Error(auth.ErrUnauthorized)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header or X-Api-Key required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			_ = c.Error(fmt.Errorf("%w: invalid header format", auth.ErrTokenMalformed))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be 'Bearer {token}'"})
			return
		}

		userId, err := auth.ValidateJWT(parts[1], cfg.JWTSecret)
		if err != nil {
			customLog.Warnf("Authenticate: Token validation failed: %v", err)
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(principalContextKey, Principal{UserID: userId})
		c.Next()
	}
}

// resolveAPIKey looks up the credential by its public prefix and verifies
// the secret against the stored hash. Revoked keys never authenticate.
func resolveAPIKey(c *gin.Context, db *sql.DB, header string) (*domain.APIKey, error) {
	prefix, secret, err := auth.SplitAPIKey(header)
	if err != nil {
		return nil, err
	}

	key, err := storage.FindAPIKeyByPrefix(c.Request.Context(), db, prefix)
	if err != nil {
		if err == storage.ErrAPIKeyNotFound {
			return nil, fmt.Errorf("%w: unknown api key", auth.ErrUnauthorized)
		}
		return nil, fmt.Errorf("internal error during auth: %w", err)
	}

	if key.Revoked {
		return nil, auth.ErrKeyRevoked
	}
	if !auth.CheckAPIKeySecret(secret, key.HashedSecret) {
		return nil, fmt.Errorf("%w: invalid api key secret", auth.ErrUnauthorized)
	}

	return key, nil
}

// RequireDeviceKey rejects requests whose principal did not authenticate
// with an API key. Device-only endpoints sit behind this.
func RequireDeviceKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok || !p.IsDevice() {
			_ = c.Error(auth.ErrAPIKeyRequired)
			c.Abort()
			return
		}
		c.Next()
	}
}
