package repository

import (
	"context"
	"time"

	"github.com/nugget-pipeline/internal/kv"
	"github.com/nugget-pipeline/internal/models"
	"github.com/rs/zerolog"
)

// Key prefixes in the key-value store
const (
	IdeaKeyPrefix       = "idea:"
	GenerationKeyPrefix = "generation:"
	RateLimitKeyPrefix  = "rate_limit:"
)

// IdeaRepository defines the interface for idea queue operations
type IdeaRepository interface {
	Enqueue(ctx context.Context, seed *models.IdeaSeed) (string, error)
	NextPending(ctx context.Context) (*models.Idea, error)
	SetStatus(ctx context.Context, slug string, status models.IdeaStatus, meta *models.StatusMetadata) (*models.Idea, error)
	TransitionStatus(ctx context.Context, slug string, to models.IdeaStatus, meta *models.StatusMetadata, from ...models.IdeaStatus) (*models.Idea, error)
	GetBySlug(ctx context.Context, slug string) (*models.Idea, error)
	ListAll(ctx context.Context) ([]*models.Idea, error)
}

// GenerationLogRepository records which ideas produced a pull request
type GenerationLogRepository interface {
	Append(ctx context.Context, entry *models.GenerationLogEntry, ttl time.Duration) error
	Get(ctx context.Context, slug string) (*models.GenerationLogEntry, error)
}

// RateLimitRepository stores per-identity hourly submission counters
type RateLimitRepository interface {
	Count(ctx context.Context, identity string, window time.Time) (int, error)
	Store(ctx context.Context, identity string, window time.Time, count int, ttl time.Duration) error
}

// QueueOrder selects how NextPending picks among pending ideas
type QueueOrder string

const (
	// OrderKey returns the first pending idea in key order
	OrderKey QueueOrder = "key"
	// OrderCreated returns the pending idea with the earliest createdAt, ties broken by key
	OrderCreated QueueOrder = "created"
)

// Options tunes the repositories
type Options struct {
	Order QueueOrder
	Clock func() time.Time
}

// Repositories holds all repository interfaces
type Repositories struct {
	Idea          IdeaRepository
	GenerationLog GenerationLogRepository
	RateLimit     RateLimitRepository
}

// New creates all repositories over the given key-value store
func New(store kv.Store, opts Options, log zerolog.Logger) *Repositories {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Order == "" {
		opts.Order = OrderKey
	}
	log = log.With().Str("component", "repository").Logger()

	return &Repositories{
		Idea:          NewIdeaRepo(store, opts, log),
		GenerationLog: NewGenerationLogRepo(store),
		RateLimit:     NewRateLimitRepo(store, log),
	}
}
