package database

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"waitlist-service/core/constants"
	"waitlist-service/core/utils"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrLockNotAcquired is returned when a transaction-scoped advisory lock stays
// held by another session after every retry.
var ErrLockNotAcquired = stderrors.New("advisory lock not acquired")

// TryAdvisoryLocks takes pg_try_advisory_xact_lock on every key, in sorted order so
// two transactions never wait on each other in opposite directions. Locks are
// released on commit or rollback.
func TryAdvisoryLocks(ctx context.Context, tx *sqlx.Tx, keys ...string) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	for _, key := range sorted {
		err := utils.Retry(ctx, utils.RetryConfig{
			MaxAttempts:  constants.LockMaxAttempts,
			InitialDelay: constants.LockInitialDelay,
			MaxDelay:     constants.LockMaxDelay,
		}, func() error {
			var ok bool
			if err := tx.GetContext(ctx, &ok, `SELECT pg_try_advisory_xact_lock(hashtext($1))`, key); err != nil {
				return utils.Permanent(err)
			}
			if !ok {
				return ErrLockNotAcquired
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a postgres unique_violation, optionally
// restricted to one constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
