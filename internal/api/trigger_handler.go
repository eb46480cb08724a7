package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/service"
	"github.com/rs/zerolog"
)

// TriggerHandler runs the pipeline triggers on demand
type TriggerHandler struct {
	services *service.Services
	timeout  time.Duration
	log      zerolog.Logger
}

// NewTriggerHandler creates a new TriggerHandler
func NewTriggerHandler(services *service.Services, timeout time.Duration, log zerolog.Logger) *TriggerHandler {
	return &TriggerHandler{
		services: services,
		timeout:  timeout,
		log:      log.With().Str("handler", "trigger").Logger(),
	}
}

// contextWithTimeout creates a context with the trigger timeout for handlers
func (h *TriggerHandler) contextWithTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// RunGeneration handles POST /v1/triggers/generation
func (h *TriggerHandler) RunGeneration(c *gin.Context) {
	ctx, cancel := h.contextWithTimeout(c)
	defer cancel()

	result, err := h.services.Pipeline.RunGeneration(ctx, models.SourceManual)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	message := "Nugget generated"
	if result.Idea == nil {
		message = "No pending ideas in queue"
	}
	c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: message, Data: result})
}

// RunReconciliation handles POST /v1/triggers/reconciliation
func (h *TriggerHandler) RunReconciliation(c *gin.Context) {
	ctx, cancel := h.contextWithTimeout(c)
	defer cancel()

	report, err := h.services.Pipeline.RunReconciliation(ctx)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: "Reconciliation finished", Data: report})
}
