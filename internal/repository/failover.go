package repository

import (
	"context"
	"sync/atomic"
	"time"

	"clinicbook/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverLimiterStore prefers the primary store and drops to the fallback
// when the primary errors, retrying the primary after a cool-down.
type FailoverLimiterStore struct {
	primary   domain.RateLimitStore
	fallback  domain.RateLimitStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	downSince atomic.Int64
}

const recoveryInterval = time.Minute

func NewFailoverLimiterStore(primary, fallback domain.RateLimitStore, logger *zerolog.Logger) *FailoverLimiterStore {
	return &FailoverLimiterStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverLimiterStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() || r.shouldRetryPrimary() {
		allowed, err := r.primary.Allow(ctx, key, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("primary rate limit store failed, falling back to memory")
		r.isDown.Store(true)
		r.downSince.Store(time.Now().UnixNano())
	}

	return r.fallback.Allow(ctx, key, limit, window)
}

func (r *FailoverLimiterStore) shouldRetryPrimary() bool {
	return time.Since(time.Unix(0, r.downSince.Load())) > recoveryInterval
}
