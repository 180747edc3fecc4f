package logging

import (
	"context"
	"log/slog"
	"time"
)

// StartCleanup runs a daily goroutine that deletes system logs older than
// retentionDays. It returns once done is closed.
func StartCleanup(store LogStore, retentionDays int, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				Purge(store, retentionDays, time.Now())
			case <-done:
				return
			}
		}
	}()
}

// Purge deletes logs older than retentionDays before now.
func Purge(store LogStore, retentionDays int, now time.Time) {
	if retentionDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := store.PurgeBefore(ctx, cutoff)
	if err != nil {
		slog.Warn("log cleanup failed", "error", err)
	} else if deleted > 0 {
		slog.Info("log cleanup completed", "deleted", deleted)
	}
}
