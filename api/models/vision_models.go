package models

import (
	"time"

	"github.com/vigil-ai/vigil-backend/internal/domain"
)

// --- Device Configuration Structs ---

// UpdateConfigRequest is a partial update of a device configuration.
// Pointer fields distinguish "absent" from zero values.
type UpdateConfigRequest struct {
	// Prefix selects which key's configuration to update when the caller is
	// a dashboard user; device principals act on their own key and omit it.
	Prefix        string  `json:"prefix,omitempty"`
	FlashEnabled  *bool   `json:"flash_enabled,omitempty"`
	DelaySeconds  *int    `json:"delay_seconds,omitempty"`
	DefaultModel  *string `json:"default_model,omitempty"`
	PromptContext *string `json:"prompt_context,omitempty"`
}

// --- Analysis Structs ---

// AnalysisLogResponse is the wire form of a completed analysis record.
type AnalysisLogResponse struct {
	Id          string    `json:"id"`
	User        string    `json:"user"`
	ModelUsed   string    `json:"model_used"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Image1URL   string    `json:"image1_url"`
	Image2URL   string    `json:"image2_url"`
}

// NewAnalysisLogResponse maps a domain log onto its response shape,
// deriving the protected media URLs from the record id.
func NewAnalysisLogResponse(log *domain.AnalysisLog) AnalysisLogResponse {
	return AnalysisLogResponse{
		Id:          log.Id,
		User:        log.OwnerId,
		ModelUsed:   log.ModelUsed,
		Description: log.Description,
		CreatedAt:   log.CreatedAt,
		Image1URL:   "/api/v1/vision/logs/" + log.Id + "/image1",
		Image2URL:   "/api/v1/vision/logs/" + log.Id + "/image2",
	}
}

// --- Device Log Structs ---

// DeviceLogRequest is an ephemeral log line pushed by a device.
type DeviceLogRequest struct {
	Message string `json:"message" binding:"required"`
}
