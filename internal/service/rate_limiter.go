package service

import (
	"context"
	"time"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/repository"
	"github.com/rs/zerolog"
)

// rateWindowTTL is how long a counter outlives its last write
const rateWindowTTL = time.Hour

// rateLimiter enforces a per-identity ceiling of calls per UTC hour
type rateLimiter struct {
	repo  repository.RateLimitRepository
	limit int
	now   func() time.Time
	log   zerolog.Logger
}

func newRateLimiter(repo repository.RateLimitRepository, limit int, now func() time.Time, log zerolog.Logger) *rateLimiter {
	return &rateLimiter{repo: repo, limit: limit, now: now, log: log}
}

// Allow counts one call for identity, or returns ErrRateLimited when the
// ceiling for the current hour is already reached
func (l *rateLimiter) Allow(ctx context.Context, identity string) error {
	window := l.now().UTC()

	count, err := l.repo.Count(ctx, identity, window)
	if err != nil {
		return err
	}
	if count >= l.limit {
		l.log.Warn().Str("identity", identity).Int("count", count).Msg("Rate limit exceeded")
		return apperrors.ErrRateLimited
	}

	return l.repo.Store(ctx, identity, window, count+1, rateWindowTTL)
}
