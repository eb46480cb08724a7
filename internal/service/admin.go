package service

import (
	"context"
	"fmt"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
)

// Requeue returns a failed or stuck in-progress idea to the queue
func (s *pipelineService) Requeue(ctx context.Context, slug string) (*models.Idea, error) {
	current, err := s.GetIdea(ctx, slug)
	if err != nil {
		return nil, err
	}
	if current.Status != models.IdeaStatusFailed && current.Status != models.IdeaStatusInProgress {
		return nil, fmt.Errorf("cannot requeue %q from %s: %w", slug, current.Status, apperrors.ErrInvalidTransition)
	}

	idea, err := s.transition(ctx, slug, current.Status, models.IdeaStatusPending, nil, models.SourceManual)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("slug", slug).Str("from", string(current.Status)).Msg("Idea requeued")
	return idea, nil
}

// Skip retires a non-terminal idea without publishing it
func (s *pipelineService) Skip(ctx context.Context, slug string) (*models.Idea, error) {
	current, err := s.GetIdea(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(current.Status, models.IdeaStatusSkipped) {
		return nil, fmt.Errorf("cannot skip %q from %s: %w", slug, current.Status, apperrors.ErrInvalidTransition)
	}

	idea, err := s.transition(ctx, slug, current.Status, models.IdeaStatusSkipped, nil, models.SourceManual)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("slug", slug).Str("from", string(current.Status)).Msg("Idea skipped")
	return idea, nil
}
