package health

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const sweepPageSize = 50

// SweepStale re-verifies every non-deregistered entry whose last check
// predates olderThan. Each processed entry gets a fresh last_uptime_check and
// drops out of the stale predicate, so the sweep re-reads the first page per
// iteration instead of carrying a cursor.
func (c *Checker) SweepStale(ctx context.Context, olderThan time.Time) error {
	if olderThan.IsZero() {
		return nil
	}
	for {
		entries, err := c.store.ListStaleEntries(ctx, olderThan, sweepPageSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		// A failed batch leaves its rows stale; stop rather than re-fetch
		// the same page, the next scheduled sweep retries.
		if _, err := c.CheckVerifyAndUpdateEntries(ctx, entries, olderThan); err != nil {
			c.logger.Warn("health sweep batch failed", zap.Error(err))
			return nil
		}

		if len(entries) < sweepPageSize {
			return nil
		}
	}
}
