package service

import (
	"context"
	"time"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/config"
	"github.com/nugget-pipeline/internal/events"
	"github.com/nugget-pipeline/internal/generator"
	"github.com/nugget-pipeline/internal/metrics"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/publisher"
	"github.com/nugget-pipeline/internal/repository"
	"github.com/rs/zerolog"
)

// pipelineService is the concrete implementation of PipelineService
type pipelineService struct {
	repos     *repository.Repositories
	generator generator.Generator
	publisher publisher.Publisher
	emitter   events.Emitter
	metrics   *metrics.Metrics
	limiter   *rateLimiter
	cfg       config.PipelineConfig
	now       func() time.Time
	log       zerolog.Logger
}

func newPipelineService(deps Dependencies, cfg config.PipelineConfig, log zerolog.Logger) *pipelineService {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Emitter == nil {
		deps.Emitter = events.NopEmitter{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetrics()
	}
	if cfg.ReconcileConcurrency < 1 {
		cfg.ReconcileConcurrency = 1
	}

	log = log.With().Str("service", "pipeline").Logger()

	return &pipelineService{
		repos:     deps.Repos,
		generator: deps.Generator,
		publisher: deps.Publisher,
		emitter:   deps.Emitter,
		metrics:   deps.Metrics,
		limiter:   newRateLimiter(deps.Repos.RateLimit, cfg.RateLimitPerHour, deps.Clock, log),
		cfg:       cfg,
		now:       deps.Clock,
		log:       log,
	}
}

// transition moves slug from one known status to another and reports it
func (s *pipelineService) transition(ctx context.Context, slug string, from, to models.IdeaStatus, meta *models.StatusMetadata, source string) (*models.Idea, error) {
	idea, err := s.repos.Idea.TransitionStatus(ctx, slug, to, meta, from)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, idea, from, source)
	return idea, nil
}

// announce records a status change in metrics and on the event bus
func (s *pipelineService) announce(ctx context.Context, idea *models.Idea, from models.IdeaStatus, source string) {
	s.metrics.RecordTransition(string(from), string(idea.Status))

	ev := events.Transition(idea, from, source, s.now())
	if err := s.emitter.Emit(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("slug", idea.Slug).
			Str("to", string(idea.Status)).
			Msg("Failed to emit lifecycle event")
	}
}

// GetIdea retrieves an idea by slug
func (s *pipelineService) GetIdea(ctx context.Context, slug string) (*models.Idea, error) {
	idea, err := s.repos.Idea.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if idea == nil {
		return nil, apperrors.ErrNotFound
	}
	return idea, nil
}

// ListIdeas returns all ideas, or only those in status when it is set
func (s *pipelineService) ListIdeas(ctx context.Context, status models.IdeaStatus) ([]*models.Idea, error) {
	ideas, err := s.repos.Idea.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return ideas, nil
	}

	filtered := make([]*models.Idea, 0, len(ideas))
	for _, idea := range ideas {
		if idea.Status == status {
			filtered = append(filtered, idea)
		}
	}
	return filtered, nil
}
