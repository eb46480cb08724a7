package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/generator"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// failureWriteTimeout bounds the write that parks a failed idea, which runs
// even after the trigger context has expired
const failureWriteTimeout = 10 * time.Second

// RunGeneration turns the next pending idea into an open pull request.
// An empty queue is not an error and yields a result with a nil Idea.
func (s *pipelineService) RunGeneration(ctx context.Context, source string) (result *models.GenerationResult, err error) {
	start := s.now()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.generation", attribute.String("source", source))
	defer func() {
		s.metrics.RecordTrigger(TriggerGeneration, err == nil, s.now().Sub(start).Seconds())
		telemetry.EndSpan(span, err)
	}()

	next, err := s.repos.Idea.NextPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	if next == nil {
		s.log.Info().Str("source", source).Msg("No pending ideas in queue")
		return &models.GenerationResult{}, nil
	}

	log := s.log.With().Str("slug", next.Slug).Str("source", source).Logger()
	span.SetAttributes(attribute.String("slug", next.Slug))

	idea, err := s.transition(ctx, next.Slug, models.IdeaStatusPending, models.IdeaStatusInProgress, nil, source)
	if apperrors.Is(err, apperrors.ErrStatusConflict) {
		log.Warn().Msg("Idea claimed by a concurrent run, skipping")
		return &models.GenerationResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim idea: %w", err)
	}

	log.Info().Str("title", idea.Title).Msg("Generating nugget")

	doc, err := s.generator.Generate(ctx, idea)
	if err != nil {
		return nil, s.fail(ctx, idea, source, err)
	}

	pr, err := s.publisher.OpenPullRequest(ctx, doc, s.now().UTC().Format(generator.DateLayout))
	if err != nil {
		return nil, s.fail(ctx, idea, source, err)
	}

	idea, err = s.transition(ctx, idea.Slug, models.IdeaStatusInProgress, models.IdeaStatusAwaitingReview,
		&models.StatusMetadata{PRURL: pr.PRURL, PRNumber: pr.PRNumber}, source)
	if err != nil {
		log.Error().Err(err).Str("pr_url", pr.PRURL).Msg("Pull request opened but idea could not be updated")
		return nil, fmt.Errorf("failed to record pull request: %w", err)
	}

	entry := &models.GenerationLogEntry{
		Slug:      idea.Slug,
		Title:     idea.Title,
		CreatedAt: s.now().UTC(),
		PRURL:     pr.PRURL,
		PRNumber:  pr.PRNumber,
		Source:    source,
	}
	if err := s.repos.GenerationLog.Append(ctx, entry, s.cfg.GenerationLogTTL); err != nil {
		return nil, fmt.Errorf("failed to append generation log: %w", err)
	}

	log.Info().
		Int("pr_number", pr.PRNumber).
		Str("pr_url", pr.PRURL).
		Msg("Nugget generated, awaiting review")

	return &models.GenerationResult{Idea: idea, PullRequest: pr}, nil
}

// fail parks an in-progress idea in the failed state and returns cause
func (s *pipelineService) fail(ctx context.Context, idea *models.Idea, source string, cause error) error {
	var up *apperrors.UpstreamError
	if apperrors.As(cause, &up) {
		s.metrics.RecordUpstreamError(up.Service)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()

	meta := &models.StatusMetadata{LastError: cause.Error()}
	if _, err := s.transition(writeCtx, idea.Slug, models.IdeaStatusInProgress, models.IdeaStatusFailed, meta, source); err != nil {
		s.log.Error().Err(err).Str("slug", idea.Slug).Msg("Failed to mark idea as failed")
	}

	s.log.Error().Err(cause).Str("slug", idea.Slug).Msg("Generation failed")
	return fmt.Errorf("generation of %q failed: %w", idea.Slug, cause)
}
