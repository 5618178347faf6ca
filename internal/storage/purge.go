package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrEmptyKey is returned when a record without a key is written.
var ErrEmptyKey = errors.New("storage: bundle record key is required")

// DefaultRetention is how long fallback records outlive their last write.
const DefaultRetention = 30 * 24 * time.Hour

// RunPurger removes records older than retention every interval until ctx is done.
// Cleared carts are never deleted explicitly; this loop is what reclaims them.
func RunPurger(ctx context.Context, store Store, retention, interval time.Duration, logger *slog.Logger) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeBundlesBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Warn("bundle fallback purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged bundle fallback records", "count", n)
			}
		}
	}
}
