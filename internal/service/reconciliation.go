package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/telemetry"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

// RunReconciliation publishes every awaiting-review idea whose pull request
// was merged. A failed check for one idea never aborts the batch; store
// failures do.
func (s *pipelineService) RunReconciliation(ctx context.Context) (report *models.ReconcileReport, err error) {
	start := s.now()
	ctx, span := telemetry.StartSpan(ctx, "pipeline.reconciliation")
	defer func() {
		s.metrics.RecordTrigger(TriggerReconciliation, err == nil, s.now().Sub(start).Seconds())
		telemetry.EndSpan(span, err)
	}()

	ideas, err := s.repos.Idea.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ideas: %w", err)
	}

	var awaiting []*models.Idea
	for _, idea := range ideas {
		if idea.Status == models.IdeaStatusAwaitingReview && idea.PRNumber > 0 {
			awaiting = append(awaiting, idea)
		}
	}
	span.SetAttributes(attribute.Int("checked", len(awaiting)))

	report = &models.ReconcileReport{
		Checked:   len(awaiting),
		Published: []string{},
		Failed:    []string{},
	}

	var (
		mu       sync.Mutex
		storeErr error
	)
	p := pool.New().WithMaxGoroutines(s.cfg.ReconcileConcurrency)
	for _, idea := range awaiting {
		idea := idea
		p.Go(func() {
			published, err := s.reconcileOne(ctx, idea)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && published:
				report.Published = append(report.Published, idea.Slug)
			case err == nil:
			case apperrors.Is(err, apperrors.ErrStoreUnavailable):
				if storeErr == nil {
					storeErr = err
				}
				report.Failed = append(report.Failed, idea.Slug)
			default:
				report.Failed = append(report.Failed, idea.Slug)
			}
		})
	}
	p.Wait()

	sort.Strings(report.Published)
	sort.Strings(report.Failed)

	s.log.Info().
		Int("checked", report.Checked).
		Int("published", len(report.Published)).
		Int("failed", len(report.Failed)).
		Msg("Reconciliation finished")

	if storeErr != nil {
		return report, fmt.Errorf("reconciliation aborted: %w", storeErr)
	}
	return report, nil
}

// reconcileOne checks one pull request and publishes its idea when merged
func (s *pipelineService) reconcileOne(ctx context.Context, idea *models.Idea) (bool, error) {
	log := s.log.With().Str("slug", idea.Slug).Int("pr_number", idea.PRNumber).Logger()

	merged, err := s.publisher.CheckMergeStatus(ctx, idea.PRNumber)
	if err != nil {
		s.metrics.RecordMergeCheck("error")
		var up *apperrors.UpstreamError
		if apperrors.As(err, &up) {
			s.metrics.RecordUpstreamError(up.Service)
		}
		log.Warn().Err(err).Msg("Failed to check merge status")
		return false, err
	}
	if !merged {
		s.metrics.RecordMergeCheck("open")
		return false, nil
	}
	s.metrics.RecordMergeCheck("merged")

	if _, err := s.transition(ctx, idea.Slug, models.IdeaStatusAwaitingReview, models.IdeaStatusPublished, nil, TriggerReconciliation); err != nil {
		log.Warn().Err(err).Msg("Failed to publish merged idea")
		return false, err
	}

	log.Info().Msg("Pull request merged, idea published")
	return true, nil
}

// HandleScheduled dispatches a cron firing to the trigger registered for it
func (s *pipelineService) HandleScheduled(ctx context.Context, cronExpr string) error {
	switch cronExpr {
	case s.cfg.GenerationSchedule:
		_, err := s.RunGeneration(ctx, models.SourceScheduler)
		return err
	case s.cfg.ReconciliationSchedule:
		_, err := s.RunReconciliation(ctx)
		return err
	default:
		return fmt.Errorf("no trigger registered for schedule %q", cronExpr)
	}
}
