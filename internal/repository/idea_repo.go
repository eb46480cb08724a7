package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/kv"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/slug"
	"github.com/rs/zerolog"
)

// maxWriteAttempts bounds the read-compare-swap loop of a single write
const maxWriteAttempts = 3

// ideaRepo is the concrete implementation of IdeaRepository
type ideaRepo struct {
	store kv.Store
	order QueueOrder
	now   func() time.Time
	log   zerolog.Logger
}

// NewIdeaRepo creates a new idea repository
func NewIdeaRepo(store kv.Store, opts Options, log zerolog.Logger) IdeaRepository {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Order == "" {
		opts.Order = OrderKey
	}
	return &ideaRepo{store: store, order: opts.Order, now: opts.Clock, log: log}
}

func ideaKey(s string) string {
	return IdeaKeyPrefix + s
}

// load reads the record under slug. A missing key returns nil, nil, nil.
func (r *ideaRepo) load(ctx context.Context, s string) (*models.Idea, []byte, error) {
	raw, err := r.store.Get(ctx, ideaKey(s))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	idea, err := decodeIdea(s, raw)
	if err != nil {
		return nil, raw, err
	}
	return idea, raw, nil
}

func decodeIdea(s string, raw []byte) (*models.Idea, error) {
	var idea models.Idea
	if err := json.Unmarshal(raw, &idea); err != nil {
		return nil, fmt.Errorf("decode idea %q: %w", s, err)
	}
	if idea.Slug == "" {
		idea.Slug = s
	}
	return &idea, nil
}

// Enqueue upserts a pending record for seed and returns its slug
func (r *ideaRepo) Enqueue(ctx context.Context, seed *models.IdeaSeed) (string, error) {
	s := slug.Make(seed.Title)
	if s == "" {
		return "", apperrors.NewValidationError(apperrors.CodeMissingField, "title",
			"title must contain at least one letter or digit", seed.Title)
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		existing, raw, err := r.load(ctx, s)
		if err != nil && raw == nil {
			return "", err
		}
		if err != nil {
			r.log.Warn().Err(err).Str("slug", s).Msg("Overwriting unreadable idea record")
		}
		if existing != nil && existing.Status.IsTerminal() {
			return "", fmt.Errorf("enqueue %q (status %s): %w", s, existing.Status, apperrors.ErrDuplicateTerminalIdea)
		}

		now := r.now().UTC()
		idea := &models.Idea{
			IdeaSeed:  *seed,
			Slug:      s,
			Status:    models.IdeaStatusPending,
			CreatedAt: now,
			UpdatedAt: &now,
		}
		idea.Tags = append([]string(nil), seed.Tags...)
		if idea.Risk == "" {
			idea.Risk = models.RiskLow
		}

		next, err := json.Marshal(idea)
		if err != nil {
			return "", fmt.Errorf("encode idea %q: %w", s, err)
		}

		ok, err := r.store.CompareAndSwap(ctx, ideaKey(s), raw, next, 0)
		if err != nil {
			return "", err
		}
		if ok {
			if existing != nil {
				r.log.Info().Str("slug", s).Str("previous_status", string(existing.Status)).Msg("Idea overwritten")
			}
			return s, nil
		}
	}

	return "", fmt.Errorf("enqueue %q: %w", s, apperrors.ErrStatusConflict)
}

// NextPending returns the pending idea that is first in queue order, or nil
func (r *ideaRepo) NextPending(ctx context.Context) (*models.Idea, error) {
	keys, err := r.store.List(ctx, IdeaKeyPrefix)
	if err != nil {
		return nil, err
	}

	var picked *models.Idea
	for _, key := range keys {
		idea, _, err := r.load(ctx, strings.TrimPrefix(key, IdeaKeyPrefix))
		if err != nil {
			if errors.Is(err, apperrors.ErrStoreUnavailable) {
				return nil, err
			}
			r.log.Warn().Err(err).Str("key", key).Msg("Skipping unreadable idea record")
			continue
		}
		if idea == nil || idea.Status != models.IdeaStatusPending {
			continue
		}

		if r.order == OrderKey {
			return idea, nil
		}
		if picked == nil || idea.CreatedAt.Before(picked.CreatedAt) {
			picked = idea
		}
	}

	return picked, nil
}

// SetStatus sets the status unconditionally, merging meta into the record
func (r *ideaRepo) SetStatus(ctx context.Context, s string, status models.IdeaStatus, meta *models.StatusMetadata) (*models.Idea, error) {
	if !models.ValidIdeaStatuses[status] {
		return nil, fmt.Errorf("unknown status %q: %w", status, apperrors.ErrInvalidTransition)
	}
	return r.write(ctx, s, status, meta, func(*models.Idea) error { return nil })
}

// TransitionStatus moves the record to `to` only if its current status is
// one of from. With no from, any lifecycle edge into `to` is accepted.
func (r *ideaRepo) TransitionStatus(ctx context.Context, s string, to models.IdeaStatus, meta *models.StatusMetadata, from ...models.IdeaStatus) (*models.Idea, error) {
	check := func(current *models.Idea) error {
		if len(from) == 0 {
			if !models.CanTransition(current.Status, to) {
				return fmt.Errorf("%s -> %s for %q: %w", current.Status, to, s, apperrors.ErrInvalidTransition)
			}
			return nil
		}
		for _, f := range from {
			if current.Status == f {
				return nil
			}
		}
		return fmt.Errorf("%q is %s, expected one of %v: %w", s, current.Status, from, apperrors.ErrStatusConflict)
	}
	return r.write(ctx, s, to, meta, check)
}

func (r *ideaRepo) write(ctx context.Context, s string, to models.IdeaStatus, meta *models.StatusMetadata, check func(*models.Idea) error) (*models.Idea, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		idea, raw, err := r.load(ctx, s)
		if err != nil {
			return nil, err
		}
		if idea == nil {
			return nil, fmt.Errorf("%q: %w", s, apperrors.ErrNotFound)
		}
		if err := check(idea); err != nil {
			return nil, err
		}

		r.apply(idea, to, meta)

		next, err := json.Marshal(idea)
		if err != nil {
			return nil, fmt.Errorf("encode idea %q: %w", s, err)
		}

		ok, err := r.store.CompareAndSwap(ctx, ideaKey(s), raw, next, 0)
		if err != nil {
			return nil, err
		}
		if ok {
			return idea, nil
		}
		r.log.Debug().Str("slug", s).Int("attempt", attempt+1).Msg("Idea changed during write, retrying")
	}

	return nil, fmt.Errorf("set status of %q: %w", s, apperrors.ErrStatusConflict)
}

func (r *ideaRepo) apply(idea *models.Idea, to models.IdeaStatus, meta *models.StatusMetadata) {
	now := r.now().UTC()
	idea.Status = to
	idea.UpdatedAt = &now

	switch to {
	case models.IdeaStatusInProgress:
		if idea.GeneratedAt == nil {
			idea.GeneratedAt = &now
		}
		idea.Attempts++
	case models.IdeaStatusPending:
		idea.LastError = ""
	}

	if meta == nil {
		return
	}
	if meta.PRURL != "" {
		idea.PRURL = meta.PRURL
	}
	if meta.PRNumber != 0 {
		idea.PRNumber = meta.PRNumber
	}
	if meta.LastError != "" {
		idea.LastError = meta.LastError
	}
}

// GetBySlug retrieves an idea by slug; nil when absent
func (r *ideaRepo) GetBySlug(ctx context.Context, s string) (*models.Idea, error) {
	idea, _, err := r.load(ctx, s)
	return idea, err
}

// ListAll returns every readable idea in key order
func (r *ideaRepo) ListAll(ctx context.Context) ([]*models.Idea, error) {
	keys, err := r.store.List(ctx, IdeaKeyPrefix)
	if err != nil {
		return nil, err
	}

	ideas := make([]*models.Idea, 0, len(keys))
	for _, key := range keys {
		idea, _, err := r.load(ctx, strings.TrimPrefix(key, IdeaKeyPrefix))
		if err != nil {
			if errors.Is(err, apperrors.ErrStoreUnavailable) {
				return nil, err
			}
			r.log.Warn().Err(err).Str("key", key).Msg("Skipping unreadable idea record")
			continue
		}
		if idea != nil {
			ideas = append(ideas, idea)
		}
	}
	return ideas, nil
}
