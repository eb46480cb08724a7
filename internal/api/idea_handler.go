package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/service"
	"github.com/rs/zerolog"
)

// maxSubmissionBytes caps the size of a submitted idea
const maxSubmissionBytes = 64 << 10

// IdeaHandler handles idea endpoints
type IdeaHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewIdeaHandler creates a new IdeaHandler
func NewIdeaHandler(services *service.Services, log zerolog.Logger) *IdeaHandler {
	return &IdeaHandler{
		services: services,
		log:      log.With().Str("handler", "idea").Logger(),
	}
}

// SubmitIdea handles POST /v1/ideas
// Accepts {"idea": {...}} or a bare idea object
func (h *IdeaHandler) SubmitIdea(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmissionBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, models.APIResponse{Success: false, Error: "Request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, models.APIResponse{Success: false, Error: "Failed to read request body"})
		return
	}

	result, err := h.services.Pipeline.Submit(c.Request.Context(), identityOf(c), body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, models.APIResponse{
		Success: true,
		Message: "Idea queued",
		Data:    result,
	})
}

// ListIdeas handles GET /v1/ideas?status=
func (h *IdeaHandler) ListIdeas(c *gin.Context) {
	status := models.IdeaStatus(c.Query("status"))
	if status != "" && !models.ValidIdeaStatuses[status] {
		respondError(c, h.log, apperrors.NewValidationError(apperrors.CodeMissingField, "status",
			"status must be a known idea status", string(status)))
		return
	}

	ideas, err := h.services.Pipeline.ListIdeas(c.Request.Context(), status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: ideas})
}

// GetIdea handles GET /v1/ideas/:slug
func (h *IdeaHandler) GetIdea(c *gin.Context) {
	idea, err := h.services.Pipeline.GetIdea(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: idea})
}

// RequeueIdea handles POST /v1/ideas/:slug/requeue
func (h *IdeaHandler) RequeueIdea(c *gin.Context) {
	idea, err := h.services.Pipeline.Requeue(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: "Idea requeued", Data: idea})
}

// SkipIdea handles POST /v1/ideas/:slug/skip
func (h *IdeaHandler) SkipIdea(c *gin.Context) {
	idea, err := h.services.Pipeline.Skip(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: "Idea skipped", Data: idea})
}
