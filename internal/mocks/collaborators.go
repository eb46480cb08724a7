package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/events"
	"github.com/nugget-pipeline/internal/generator"
	"github.com/nugget-pipeline/internal/kv"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/publisher"
)

// MockGenerator is a mock implementation of generator.Generator
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, idea *models.Idea) (*models.GeneratedDocument, error)
	Err          error
	Generated    []string

	mu sync.Mutex
}

// Verify interface compliance
var _ generator.Generator = (*MockGenerator)(nil)

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{Generated: make([]string, 0)}
}

func (m *MockGenerator) Generate(ctx context.Context, idea *models.Idea) (*models.GeneratedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Generated = append(m.Generated, idea.Slug)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, idea)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	body := fmt.Sprintf("## %s\n\nA short nugget about %s.", idea.Title, idea.Topic)
	return &models.GeneratedDocument{
		Slug: idea.Slug,
		Frontmatter: models.Frontmatter{
			Title:    idea.Title,
			Tags:     idea.Tags,
			Summary:  "A short nugget about " + idea.Topic + ".",
			ReadTime: "1 min",
		},
		Body:    body,
		Content: "---\ntitle: " + idea.Title + "\n---\n\n" + body + "\n",
	}, nil
}

// MockPublisher is a mock implementation of publisher.Publisher.
// Pull requests are numbered from 1 in the order they are opened.
type MockPublisher struct {
	OpenErr   error
	Merged    map[int]bool
	CheckErrs map[int]error

	Opened  []*models.GeneratedDocument
	Dates   []string
	Checked []int

	mu sync.Mutex
}

// Verify interface compliance
var _ publisher.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Merged:    make(map[int]bool),
		CheckErrs: make(map[int]error),
	}
}

func (m *MockPublisher) OpenPullRequest(ctx context.Context, doc *models.GeneratedDocument, dateHint string) (*models.PullRequestRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	m.Opened = append(m.Opened, doc)
	m.Dates = append(m.Dates, dateHint)
	n := len(m.Opened)

	return &models.PullRequestRef{
		PRURL:      fmt.Sprintf("https://github.com/acme/blog/pull/%d", n),
		PRNumber:   n,
		BranchName: fmt.Sprintf("nugget/%s-%s", doc.Slug, dateHint),
	}, nil
}

func (m *MockPublisher) CheckMergeStatus(ctx context.Context, prNumber int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Checked = append(m.Checked, prNumber)
	if err := m.CheckErrs[prNumber]; err != nil {
		return false, err
	}
	return m.Merged[prNumber], nil
}

// SetMerged marks a pull request as merged
func (m *MockPublisher) SetMerged(prNumber int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Merged[prNumber] = true
}

// MockEmitter records emitted lifecycle events
type MockEmitter struct {
	Events []events.LifecycleEvent
	Err    error
	Closed bool

	mu sync.Mutex
}

// Verify interface compliance
var _ events.Emitter = (*MockEmitter)(nil)

func NewMockEmitter() *MockEmitter {
	return &MockEmitter{Events: make([]events.LifecycleEvent, 0)}
}

func (m *MockEmitter) Emit(ctx context.Context, ev events.LifecycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
	return m.Err
}

func (m *MockEmitter) Close() error {
	m.Closed = true
	return nil
}

// Transitions returns the recorded "from>to" pairs for slug
func (m *MockEmitter) Transitions(slug string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for _, ev := range m.Events {
		if ev.Slug == slug {
			out = append(out, string(ev.From)+">"+string(ev.To))
		}
	}
	return out
}

// FlakyStore wraps a kv.Store and fails every call while Down is set
type FlakyStore struct {
	kv.Store
	Down bool
}

// Verify interface compliance
var _ kv.Store = (*FlakyStore)(nil)

func NewFlakyStore(inner kv.Store) *FlakyStore {
	return &FlakyStore{Store: inner}
}

func (f *FlakyStore) err(op, key string) error {
	return apperrors.Store(op, key, fmt.Errorf("connection refused"))
}

func (f *FlakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.Down {
		return nil, f.err("get", key)
	}
	return f.Store.Get(ctx, key)
}

func (f *FlakyStore) List(ctx context.Context, prefix string) ([]string, error) {
	if f.Down {
		return nil, f.err("list", prefix)
	}
	return f.Store.List(ctx, prefix)
}

func (f *FlakyStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.Down {
		return f.err("put", key)
	}
	return f.Store.Put(ctx, key, value, ttl)
}

func (f *FlakyStore) CompareAndSwap(ctx context.Context, key string, old, next []byte, ttl time.Duration) (bool, error) {
	if f.Down {
		return false, f.err("cas", key)
	}
	return f.Store.CompareAndSwap(ctx, key, old, next, ttl)
}
