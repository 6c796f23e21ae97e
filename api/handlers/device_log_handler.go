package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vigil-ai/vigil-backend/api/middleware"
	"github.com/vigil-ai/vigil-backend/api/models"
	"github.com/vigil-ai/vigil-backend/internal/bus"
)

// DeviceLogHandler ingests ephemeral log lines from devices and fans them
// out to the owner's broadcast group. No queuing, no persistence: listeners
// not connected at publish time never see the message.
type DeviceLogHandler struct {
	Bus bus.Bus
}

// NewDeviceLogHandler creates a new DeviceLogHandler.
func NewDeviceLogHandler(b bus.Bus) *DeviceLogHandler {
	return &DeviceLogHandler{Bus: b}
}

// Submit publishes {prefix, message} to the owning user's group.
// Requires a device-key principal; empty messages are rejected.
func (h *DeviceLogHandler) Submit(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)

	var req models.DeviceLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Message not provided"})
		return
	}

	group := bus.UserGroup(p.UserID)
	if err := h.Bus.Publish(c.Request.Context(), group, bus.LogMessage{
		Prefix:  p.Key.Prefix,
		Message: req.Message,
	}); err != nil {
		customLog.Warnf("Failed to publish device log to group %s: %v", group, err)
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
