package mocks

import (
	"context"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/service"
	"github.com/nugget-pipeline/internal/slug"
)

// MockPipelineService is a mock implementation of PipelineService
type MockPipelineService struct {
	SubmitFunc         func(ctx context.Context, identity string, raw []byte) (*models.SubmissionResult, error)
	GenerationResult   *models.GenerationResult
	ReconcileReport    *models.ReconcileReport
	TriggerErr         error
	Ideas              map[string]*models.Idea
	AdminErr           error
	SubmittedBy        []string
	GenerationSources  []string
	ScheduledFirings   []string
	ReconciliationRuns int
}

// Verify interface compliance
var _ service.PipelineService = (*MockPipelineService)(nil)

func NewMockPipelineService() *MockPipelineService {
	return &MockPipelineService{
		Ideas: make(map[string]*models.Idea),
	}
}

func (m *MockPipelineService) RunGeneration(ctx context.Context, source string) (*models.GenerationResult, error) {
	m.GenerationSources = append(m.GenerationSources, source)
	if m.TriggerErr != nil {
		return nil, m.TriggerErr
	}
	if m.GenerationResult != nil {
		return m.GenerationResult, nil
	}
	return &models.GenerationResult{}, nil
}

func (m *MockPipelineService) RunReconciliation(ctx context.Context) (*models.ReconcileReport, error) {
	m.ReconciliationRuns++
	if m.TriggerErr != nil {
		return nil, m.TriggerErr
	}
	if m.ReconcileReport != nil {
		return m.ReconcileReport, nil
	}
	return &models.ReconcileReport{Published: []string{}, Failed: []string{}}, nil
}

func (m *MockPipelineService) HandleScheduled(ctx context.Context, cronExpr string) error {
	m.ScheduledFirings = append(m.ScheduledFirings, cronExpr)
	return m.TriggerErr
}

func (m *MockPipelineService) Submit(ctx context.Context, identity string, raw []byte) (*models.SubmissionResult, error) {
	m.SubmittedBy = append(m.SubmittedBy, identity)
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, identity, raw)
	}
	return &models.SubmissionResult{
		Slug: "test-idea",
		Idea: models.SubmittedIdea{Title: "Test Idea", Status: models.IdeaStatusPending},
	}, nil
}

func (m *MockPipelineService) EnqueueSeed(ctx context.Context, seed *models.IdeaSeed) (string, error) {
	if m.AdminErr != nil {
		return "", m.AdminErr
	}
	idea := &models.Idea{IdeaSeed: *seed, Slug: slug.Make(seed.Title), Status: models.IdeaStatusPending}
	m.Ideas[idea.Slug] = idea
	return idea.Slug, nil
}

func (m *MockPipelineService) Requeue(ctx context.Context, slug string) (*models.Idea, error) {
	return m.setStatus(slug, models.IdeaStatusPending)
}

func (m *MockPipelineService) Skip(ctx context.Context, slug string) (*models.Idea, error) {
	return m.setStatus(slug, models.IdeaStatusSkipped)
}

func (m *MockPipelineService) setStatus(slug string, status models.IdeaStatus) (*models.Idea, error) {
	if m.AdminErr != nil {
		return nil, m.AdminErr
	}
	idea, ok := m.Ideas[slug]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	idea.Status = status
	return idea, nil
}

func (m *MockPipelineService) GetIdea(ctx context.Context, slug string) (*models.Idea, error) {
	idea, ok := m.Ideas[slug]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return idea, nil
}

func (m *MockPipelineService) ListIdeas(ctx context.Context, status models.IdeaStatus) ([]*models.Idea, error) {
	ideas := make([]*models.Idea, 0, len(m.Ideas))
	for _, idea := range m.Ideas {
		if status == "" || idea.Status == status {
			ideas = append(ideas, idea)
		}
	}
	return ideas, nil
}

// MockSchedulerService records start and stop calls
type MockSchedulerService struct {
	Started bool
	Stopped bool
}

// Verify interface compliance
var _ service.SchedulerService = (*MockSchedulerService)(nil)

func (m *MockSchedulerService) StartScheduler(ctx context.Context) error {
	m.Started = true
	return nil
}

func (m *MockSchedulerService) StopScheduler() {
	m.Stopped = true
}
