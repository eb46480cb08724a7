package service

import (
	"context"
	"time"

	"github.com/nugget-pipeline/internal/config"
	"github.com/nugget-pipeline/internal/events"
	"github.com/nugget-pipeline/internal/generator"
	"github.com/nugget-pipeline/internal/kv"
	"github.com/nugget-pipeline/internal/metrics"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/publisher"
	"github.com/nugget-pipeline/internal/repository"
	"github.com/rs/zerolog"
)

// Trigger names used in logs, metrics and spans
const (
	TriggerGeneration     = "generation"
	TriggerReconciliation = "reconciliation"
)

// PipelineService defines the idea lifecycle operations
type PipelineService interface {
	RunGeneration(ctx context.Context, source string) (*models.GenerationResult, error)
	RunReconciliation(ctx context.Context) (*models.ReconcileReport, error)
	HandleScheduled(ctx context.Context, cronExpr string) error
	Submit(ctx context.Context, identity string, raw []byte) (*models.SubmissionResult, error)
	EnqueueSeed(ctx context.Context, seed *models.IdeaSeed) (string, error)
	Requeue(ctx context.Context, slug string) (*models.Idea, error)
	Skip(ctx context.Context, slug string) (*models.Idea, error)
	GetIdea(ctx context.Context, slug string) (*models.Idea, error)
	ListIdeas(ctx context.Context, status models.IdeaStatus) ([]*models.Idea, error)
}

// SchedulerService runs the triggers on their cron expressions
type SchedulerService interface {
	StartScheduler(ctx context.Context) error
	StopScheduler()
}

// Dependencies are the collaborators of the pipeline
type Dependencies struct {
	Repos     *repository.Repositories
	Generator generator.Generator
	Publisher publisher.Publisher
	Emitter   events.Emitter
	Metrics   *metrics.Metrics
	// Purger is set when the store needs explicit expiry housekeeping
	Purger kv.Purger
	Clock  func() time.Time
}

// Services holds all service interfaces
type Services struct {
	Pipeline  PipelineService
	Scheduler SchedulerService
}

// NewServices creates all services
func NewServices(deps Dependencies, cfg *config.Config, log zerolog.Logger) (*Services, error) {
	pipelineSvc := newPipelineService(deps, cfg.Pipeline, log)

	schedulerSvc, err := newScheduler(pipelineSvc, deps.Purger, deps.Metrics, cfg.Pipeline, log)
	if err != nil {
		return nil, err
	}

	return &Services{
		Pipeline:  pipelineSvc,
		Scheduler: schedulerSvc,
	}, nil
}
