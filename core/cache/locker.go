package cache

import (
	"context"
	stderrors "errors"
	"time"
	"waitlist-service/core/constants"
	"waitlist-service/core/logger"
	"waitlist-service/core/utils"
)

var ErrLockHeld = stderrors.New("lock held by another owner")

// Locker hands out short-lived exclusive locks stored in a Cache. The TTL bounds
// how long a crashed holder can block others.
type Locker struct {
	cache Cache
	ttl   time.Duration
	retry utils.RetryConfig
}

func NewLocker(c Cache) *Locker {
	return &Locker{
		cache: c,
		ttl:   constants.LockTTL,
		retry: utils.RetryConfig{
			MaxAttempts:  constants.LockMaxAttempts,
			InitialDelay: constants.LockInitialDelay,
			MaxDelay:     constants.LockMaxDelay,
		},
	}
}

// Acquire blocks (with backoff) until key is held or attempts run out. The returned
// func releases the lock and is safe to call once.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	owner := utils.GenerateToken()
	err := utils.Retry(ctx, l.retry, func() error {
		ok, err := l.cache.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return utils.Permanent(err)
		}
		if !ok {
			return ErrLockHeld
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func() {
		// release must outlive a cancelled request context
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := l.cache.CompareAndDelete(releaseCtx, key, owner); err != nil {
			logger.Warn("Locker:Release:Error", "key", key, "error", err)
		}
	}, nil
}
