package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vigil-ai/vigil-backend/api/middleware"
	"github.com/vigil-ai/vigil-backend/api/models"
	"github.com/vigil-ai/vigil-backend/config"
	"github.com/vigil-ai/vigil-backend/internal/auth"
	"github.com/vigil-ai/vigil-backend/internal/storage"
)

// ConfigHandler serves the per-key device configuration. A device principal
// acts on its own key's configuration; a dashboard (JWT) principal must name
// one of its own key prefixes.
type ConfigHandler struct {
	DB  *sql.DB
	Cfg *config.Config
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(db *sql.DB, cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		DB:  db,
		Cfg: cfg,
	}
}

// resolvePrefix decides which key's configuration the caller may touch.
// Ownership of an explicitly named prefix is always checked.
func (h *ConfigHandler) resolvePrefix(c *gin.Context, requested string) (string, error) {
	p, _ := middleware.PrincipalFrom(c)

	if p.IsDevice() {
		return p.Key.Prefix, nil
	}
	if requested == "" {
		return "", auth.ErrAPIKeyRequired
	}

	key, err := storage.FindAPIKeyByPrefix(c.Request.Context(), h.DB, requested)
	if err != nil {
		return "", err
	}
	if key.OwnerId != p.UserID {
		// Don't leak existence of foreign prefixes
		return "", storage.ErrAPIKeyNotFound
	}
	return key.Prefix, nil
}

// Get returns the device configuration, creating it with defaults on first
// access.
func (h *ConfigHandler) Get(c *gin.Context) {
	prefix, err := h.resolvePrefix(c, c.Query("prefix"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	deviceCfg, err := storage.GetOrCreateDeviceConfig(c.Request.Context(), h.DB, prefix)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deviceCfg)
}

// Update applies a partial configuration update and stamps updated_at.
func (h *ConfigHandler) Update(c *gin.Context) {
	var req models.UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Update config binding error: %v", err)
		_ = c.Error(err)
		return
	}

	prefix, err := h.resolvePrefix(c, req.Prefix)
	if err != nil {
		_ = c.Error(err)
		return
	}

	deviceCfg, err := storage.UpdateDeviceConfig(c.Request.Context(), h.DB, prefix, storage.ConfigUpdate{
		FlashEnabled:  req.FlashEnabled,
		DelaySeconds:  req.DelaySeconds,
		DefaultModel:  req.DefaultModel,
		PromptContext: req.PromptContext,
	})
	if err != nil {
		customLog.Warnf("Failed to update device config for key %s: %v", prefix, err)
		_ = c.Error(err)
		return
	}

	customLog.Printf("Updated device config for key %s", prefix)
	c.JSON(http.StatusOK, deviceCfg)
}
