package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nugget-pipeline/internal/api"
	"github.com/nugget-pipeline/internal/app"
	"github.com/nugget-pipeline/internal/config"
	"github.com/nugget-pipeline/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log := logger.New(config.LogConfig{Level: "info", Format: "json"})
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log)
	log.Info().Msg("Starting nugget pipeline server...")

	if err := cfg.ValidateServer(); err != nil {
		log.Fatal().Err(err).Msg("Invalid server configuration")
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Store, repositories, upstream clients and services
	application, err := app.New(rootCtx, cfg, app.Options{Upstreams: true, Migrate: true}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize pipeline")
	}
	defer application.Close()

	// Start trigger scheduler
	if err := application.Services.Scheduler.StartScheduler(rootCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Initialize router
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(application.Services, cfg, application.Metrics, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop scheduler, letting a running trigger finish
	application.Services.Scheduler.StopScheduler()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server exited gracefully")
}
