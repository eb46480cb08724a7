package service

import (
	"context"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/validation"
	"github.com/tidwall/gjson"
)

// Submission outcomes recorded in metrics
const (
	outcomeAccepted    = "accepted"
	outcomeInvalid     = "invalid"
	outcomeDuplicate   = "duplicate"
	outcomeRateLimited = "rate_limited"
	outcomeError       = "error"
)

// Submit enqueues an idea sent by identity. raw is either a bare idea seed
// or an envelope of the form {"idea": {...}}.
func (s *pipelineService) Submit(ctx context.Context, identity string, raw []byte) (*models.SubmissionResult, error) {
	if err := s.limiter.Allow(ctx, identity); err != nil {
		s.recordSubmission(err)
		return nil, err
	}

	seed, err := validation.DecodeSeed(unwrapEnvelope(raw))
	if err != nil {
		s.recordSubmission(err)
		return nil, err
	}

	slug, err := s.EnqueueSeed(ctx, seed)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("slug", slug).Str("identity", identity).Msg("Idea submitted")

	return &models.SubmissionResult{
		Slug: slug,
		Idea: models.SubmittedIdea{Title: seed.Title, Status: models.IdeaStatusPending},
	}, nil
}

// EnqueueSeed validates seed and places it in the queue as pending. It is the
// submission path without a rate ceiling, used by the seed loader.
func (s *pipelineService) EnqueueSeed(ctx context.Context, seed *models.IdeaSeed) (string, error) {
	if err := validation.Validate(seed); err != nil {
		s.recordSubmission(err)
		return "", err
	}

	slug, err := s.repos.Idea.Enqueue(ctx, seed)
	if err != nil {
		s.recordSubmission(err)
		return "", err
	}
	s.recordSubmission(nil)

	if idea, err := s.repos.Idea.GetBySlug(ctx, slug); err == nil && idea != nil {
		s.announce(ctx, idea, "", models.SourceManual)
	}
	return slug, nil
}

func (s *pipelineService) recordSubmission(err error) {
	var ve *apperrors.ValidationError
	switch {
	case err == nil:
		s.metrics.RecordSubmission(outcomeAccepted)
	case apperrors.As(err, &ve):
		s.metrics.RecordSubmission(outcomeInvalid)
	case apperrors.Is(err, apperrors.ErrDuplicateTerminalIdea):
		s.metrics.RecordSubmission(outcomeDuplicate)
	case apperrors.Is(err, apperrors.ErrRateLimited):
		s.metrics.RecordSubmission(outcomeRateLimited)
	default:
		s.metrics.RecordSubmission(outcomeError)
	}
}

// unwrapEnvelope returns the object under "idea" when raw is an envelope
func unwrapEnvelope(raw []byte) []byte {
	if !gjson.ValidBytes(raw) {
		return raw
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() || root.Get("title").Exists() {
		return raw
	}
	if inner := root.Get("idea"); inner.Exists() {
		return []byte(inner.Raw)
	}
	return raw
}
