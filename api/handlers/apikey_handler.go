package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vigil-ai/vigil-backend/api/middleware"
	"github.com/vigil-ai/vigil-backend/api/models"
	"github.com/vigil-ai/vigil-backend/config"
	"github.com/vigil-ai/vigil-backend/internal/auth"
	"github.com/vigil-ai/vigil-backend/internal/domain"
	"github.com/vigil-ai/vigil-backend/internal/storage"
)

const defaultKeyName = "esp32-device"

// APIKeyHandler holds dependencies for credential management handlers.
// These routes are dashboard-scoped: JWT principals only.
type APIKeyHandler struct {
	DB  *sql.DB
	Cfg *config.Config
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(db *sql.DB, cfg *config.Config) *APIKeyHandler {
	return &APIKeyHandler{
		DB:  db,
		Cfg: cfg,
	}
}

// Create issues a new API key. The response is the only time the plaintext
// key ("<prefix>.<secret>") is ever returned.
func (h *APIKeyHandler) Create(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)

	var req models.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		customLog.Warnf("Create API key binding error: %v", err)
		_ = c.Error(err)
		return
	}
	name := req.Name
	if name == "" {
		name = defaultKeyName
	}

	prefix, secret, hashedSecret, err := auth.GenerateAPIKey()
	if err != nil {
		_ = c.Error(err)
		return
	}

	stored, err := storage.StoreAPIKey(c.Request.Context(), h.DB, &domain.APIKey{
		Prefix:       prefix,
		HashedSecret: hashedSecret,
		OwnerId:      p.UserID,
		Name:         name,
	})
	if err != nil {
		customLog.Warnf("Failed to store API key for user %s: %v", p.UserID, err)
		_ = c.Error(err)
		return
	}

	customLog.Printf("Issued API key %s for user %s", stored.Prefix, p.UserID)
	c.JSON(http.StatusCreated, models.CreateAPIKeyResponse{
		Prefix:    stored.Prefix,
		Key:       prefix + "." + secret,
		Name:      stored.Name,
		CreatedAt: stored.CreatedAt,
	})
}

// List returns the caller's non-revoked keys. Secrets are never included.
func (h *APIKeyHandler) List(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)

	keys, err := storage.ListAPIKeys(c.Request.Context(), h.DB, p.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, keys)
}

// Revoke soft-deletes a key by prefix. A revoked key never authenticates
// again; the row itself is kept.
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	prefix := c.Param("prefix")

	if err := storage.RevokeAPIKey(c.Request.Context(), h.DB, p.UserID, prefix); err != nil {
		customLog.Warnf("Failed to revoke API key %s for user %s: %v", prefix, p.UserID, err)
		_ = c.Error(err)
		return
	}

	customLog.Printf("Revoked API key %s for user %s", prefix, p.UserID)
	c.Status(http.StatusNoContent)
}
