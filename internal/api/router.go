package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nugget-pipeline/internal/config"
	"github.com/nugget-pipeline/internal/metrics"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(requestIDMiddleware())
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log, m))
	router.Use(corsMiddleware())

	// Handlers
	ideaHandler := NewIdeaHandler(services, log)
	triggerHandler := NewTriggerHandler(services, cfg.Pipeline.TriggerTimeout, log)

	// Health check
	router.GET("/health", healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/v1")
	v1.Use(authMiddleware(cfg.Auth.Secret, log))
	{
		ideas := v1.Group("/ideas")
		{
			ideas.POST("", ideaHandler.SubmitIdea)
			ideas.GET("", ideaHandler.ListIdeas)
			ideas.GET("/:slug", ideaHandler.GetIdea)
			ideas.POST("/:slug/requeue", ideaHandler.RequeueIdea)
			ideas.POST("/:slug/skip", ideaHandler.SkipIdea)
		}

		triggers := v1.Group("/triggers")
		{
			triggers.POST("/generation", triggerHandler.RunGeneration)
			triggers.POST("/reconciliation", triggerHandler.RunReconciliation)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "nugget-pipeline",
		},
	})
}
