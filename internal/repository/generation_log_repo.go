package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nugget-pipeline/internal/kv"
	"github.com/nugget-pipeline/internal/models"
)

type generationLogRepo struct {
	store kv.Store
}

// NewGenerationLogRepo creates a new generation log repository
func NewGenerationLogRepo(store kv.Store) GenerationLogRepository {
	return &generationLogRepo{store: store}
}

// Append writes entry under generation:<slug>, replacing any earlier entry
func (r *generationLogRepo) Append(ctx context.Context, entry *models.GenerationLogEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode generation log %q: %w", entry.Slug, err)
	}
	return r.store.Put(ctx, GenerationKeyPrefix+entry.Slug, data, ttl)
}

// Get returns the entry for slug; nil when absent or expired
func (r *generationLogRepo) Get(ctx context.Context, slug string) (*models.GenerationLogEntry, error) {
	raw, err := r.store.Get(ctx, GenerationKeyPrefix+slug)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry models.GenerationLogEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode generation log %q: %w", slug, err)
	}
	return &entry, nil
}
