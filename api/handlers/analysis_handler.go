package handlers

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vigil-ai/vigil-backend/api/middleware"
	"github.com/vigil-ai/vigil-backend/api/models"
	"github.com/vigil-ai/vigil-backend/config"
	"github.com/vigil-ai/vigil-backend/internal/auth"
	"github.com/vigil-ai/vigil-backend/internal/core"
	"github.com/vigil-ai/vigil-backend/internal/domain"
	"github.com/vigil-ai/vigil-backend/internal/media"
	"github.com/vigil-ai/vigil-backend/internal/storage"
	"github.com/vigil-ai/vigil-backend/internal/vision"
)

// ImageStore is the durable blob layer behind the submission pipeline.
// *media.Store is the production implementation.
type ImageStore interface {
	Save(logId, field string, r io.Reader) (string, error)
	Read(relPath string) ([]byte, error)
	Remove(logId string) error
}

// AnalysisHandler holds dependencies for the change-analysis pipeline.
type AnalysisHandler struct {
	DB     *sql.DB
	Cfg    *config.Config
	Media  ImageStore
	Vision *vision.Client
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(db *sql.DB, cfg *config.Config, mediaStore ImageStore, visionClient *vision.Client) *AnalysisHandler {
	return &AnalysisHandler{
		DB:     db,
		Cfg:    cfg,
		Media:  mediaStore,
		Vision: visionClient,
	}
}

// Create accepts two images plus optional model/prompt overrides, persists
// them, and runs the external analysis. Requires a device-key principal.
//
// The external call never fails the request: on any LLM-side failure the
// record completes with a placeholder description. Only an unreadable
// just-persisted image is fatal, in which case the record is rolled back.
func (h *AnalysisHandler) Create(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)

	image1, err := c.FormFile("image1")
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: image1 is required", auth.ErrBadRequest))
		return
	}
	image2, err := c.FormFile("image2")
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: image2 is required", auth.ErrBadRequest))
		return
	}

	modelOverride := c.PostForm("model")
	if modelOverride != "" && !vision.IsValidModel(modelOverride) {
		_ = c.Error(storage.ErrInvalidModel)
		return
	}
	promptOverride := c.PostForm("prompt_context")

	deviceCfg, err := storage.GetOrCreateDeviceConfig(c.Request.Context(), h.DB, p.Key.Prefix)
	if err != nil {
		_ = c.Error(err)
		return
	}

	// Request override > device configuration > global default
	modelToUse := modelOverride
	if modelToUse == "" {
		modelToUse = deviceCfg.DefaultModel
	}
	if modelToUse == "" {
		modelToUse = vision.DefaultModel
	}
	promptToUse := promptOverride
	if promptToUse == "" {
		promptToUse = deviceCfg.PromptContext
	}

	logId := uuid.New().String()

	image1Path, err := h.saveUpload(logId, "image1", image1)
	if err != nil {
		_ = c.Error(err)
		return
	}
	image2Path, err := h.saveUpload(logId, "image2", image2)
	if err != nil {
		_ = h.Media.Remove(logId)
		_ = c.Error(err)
		return
	}

	logRecord, err := storage.CreateAnalysisLog(c.Request.Context(), h.DB, &domain.AnalysisLog{
		Id:         logId,
		OwnerId:    p.UserID,
		Image1Path: image1Path,
		Image2Path: image2Path,
		ModelUsed:  modelToUse,
	})
	if err != nil {
		_ = h.Media.Remove(logId)
		_ = c.Error(err)
		return
	}

	// Re-read the persisted bytes; analysis runs off durable storage, not
	// the request buffers.
	image1Bytes, err1 := h.Media.Read(logRecord.Image1Path)
	image2Bytes, err2 := h.Media.Read(logRecord.Image2Path)
	if err1 != nil || err2 != nil {
		readErr := err1
		if readErr == nil {
			readErr = err2
		}
		customLog.Warnf("Failed to read back persisted images for log %s: %v", logId, readErr)
		if delErr := storage.DeleteAnalysisLog(c.Request.Context(), h.DB, logId); delErr != nil {
			customLog.Warnf("Failed to roll back log %s: %v", logId, delErr)
		}
		_ = h.Media.Remove(logId)
		_ = c.Error(readErr)
		return
	}

	description := h.Vision.Describe(
		c.Request.Context(),
		base64.StdEncoding.EncodeToString(image1Bytes),
		base64.StdEncoding.EncodeToString(image2Bytes),
		modelToUse,
		promptToUse,
	)

	if err := storage.SetAnalysisLogDescription(c.Request.Context(), h.DB, logId, description); err != nil {
		_ = c.Error(err)
		return
	}
	logRecord.Description = &description

	customLog.Printf("Completed analysis %s for user %s with model %s", logId, p.UserID, modelToUse)
	c.JSON(http.StatusCreated, models.NewAnalysisLogResponse(logRecord))
}

func (h *AnalysisHandler) saveUpload(logId, field string, header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded %s: %w", field, err)
	}
	defer f.Close()
	return h.Media.Save(logId, field, f)
}

// List returns a page of the caller's analysis logs, newest first.
func (h *AnalysisHandler) List(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)

	opts, err := core.ParseListQueryOptions(c.Request.URL.Query())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logs, err := storage.ListAnalysisLogs(c.Request.Context(), h.DB, p.UserID, opts.Limit, opts.Offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]models.AnalysisLogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, models.NewAnalysisLogResponse(&logs[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a single log, owner-checked.
func (h *AnalysisHandler) Get(c *gin.Context) {
	logRecord, err := h.ownedLog(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.NewAnalysisLogResponse(logRecord))
}

// ServeImage streams one of a log's stored images. Unknown fields and
// unreadable files are both 404s.
func (h *AnalysisHandler) ServeImage(c *gin.Context) {
	logRecord, err := h.ownedLog(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var relPath string
	switch c.Param("image") {
	case "image1":
		relPath = logRecord.Image1Path
	case "image2":
		relPath = logRecord.Image2Path
	default:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Image not found."})
		return
	}

	data, err := h.Media.Read(relPath)
	if err != nil {
		if errors.Is(err, media.ErrImageNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Image file could not be opened."})
			return
		}
		_ = c.Error(err)
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// ownedLog loads the log named in the path and enforces ownership. Foreign
// logs read as not found.
func (h *AnalysisHandler) ownedLog(c *gin.Context) (*domain.AnalysisLog, error) {
	p, _ := middleware.PrincipalFrom(c)

	logRecord, err := storage.FindAnalysisLog(c.Request.Context(), h.DB, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if logRecord.OwnerId != p.UserID {
		return nil, storage.ErrLogNotFound
	}
	return logRecord, nil
}

// ListModels serves the closed model enumeration.
func (h *AnalysisHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, vision.ModelChoices)
}
