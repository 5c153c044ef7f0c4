package repository

import (
	"context"
	"sync/atomic"
	"time"

	"ledgersync/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverLocker prefers the distributed lock and falls back to the in-memory
// one when redis is unreachable, retrying the primary after a minute. The
// fallback only excludes runs within this process, which is still enough for
// a single-worker deployment.
type FailoverLocker struct {
	primary   domain.Locker
	fallback  domain.Locker
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverLocker(primary, fallback domain.Locker, logger *zerolog.Logger) *FailoverLocker {
	return &FailoverLocker{primary: primary, fallback: fallback, logger: logger}
}

func (f *FailoverLocker) Acquire(ctx context.Context, syncID int64, ttl time.Duration) (bool, error) {
	if !f.isDown.Load() {
		ok, err := f.primary.Acquire(ctx, syncID, ttl)
		if err == nil {
			return ok, nil
		}
		f.logger.Error().Err(err).Msg("Primary locker failed, falling back to memory")
		f.isDown.Store(true)
		f.lastCheck = time.Now()
	}

	if f.isDown.Load() && time.Since(f.lastCheck) > time.Minute {
		ok, err := f.primary.Acquire(ctx, syncID, ttl)
		if err == nil {
			f.isDown.Store(false)
			return ok, nil
		}
		f.lastCheck = time.Now()
	}

	return f.fallback.Acquire(ctx, syncID, ttl)
}

func (f *FailoverLocker) Release(ctx context.Context, syncID int64) error {
	if !f.isDown.Load() {
		if err := f.primary.Release(ctx, syncID); err != nil {
			f.logger.Error().Err(err).Msg("Primary locker release failed")
		}
	}
	return f.fallback.Release(ctx, syncID)
}
