package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nugget-pipeline/internal/kv"
	"github.com/rs/zerolog"
)

// windowLayout names a UTC hour, e.g. 2024-03-04-09
const windowLayout = "2006-01-02-15"

type rateLimitRepo struct {
	store kv.Store
	log   zerolog.Logger
}

// NewRateLimitRepo creates a new rate limit repository
func NewRateLimitRepo(store kv.Store, log zerolog.Logger) RateLimitRepository {
	return &rateLimitRepo{store: store, log: log}
}

// RateLimitKey returns the counter key for identity in the hour containing window
func RateLimitKey(identity string, window time.Time) string {
	return fmt.Sprintf("%s%s:%s", RateLimitKeyPrefix, identity, window.UTC().Format(windowLayout))
}

// Count returns the stored counter, zero when absent or unparsable
func (r *rateLimitRepo) Count(ctx context.Context, identity string, window time.Time) (int, error) {
	key := RateLimitKey(identity, window)
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(string(raw))
	if err != nil {
		r.log.Warn().Str("key", key).Str("value", string(raw)).Msg("Ignoring malformed rate limit counter")
		return 0, nil
	}
	return n, nil
}

// Store writes the counter with the given expiry
func (r *rateLimitRepo) Store(ctx context.Context, identity string, window time.Time, count int, ttl time.Duration) error {
	return r.store.Put(ctx, RateLimitKey(identity, window), []byte(strconv.Itoa(count)), ttl)
}
