package graph

import (
	"context"
	"log/slog"
	"time"
)

// Janitor periodically evicts stale low-weight nodes from a store.
type Janitor struct {
	store    *Store
	interval time.Duration
	maxAge   time.Duration
}

// NewJanitor configures a sweep of store every interval, evicting nodes
// older than maxAge. Both durations must be positive.
func NewJanitor(store *Store, interval, maxAge time.Duration) *Janitor {
	return &Janitor{store: store, interval: interval, maxAge: maxAge}
}

// Run blocks, sweeping the store on every tick until ctx is canceled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := j.store.Cleanup(j.maxAge); removed > 0 {
				slog.Info("graph cleanup removed stale nodes",
					"removed", removed,
					"max_age", j.maxAge.String(),
				)
			}
		}
	}
}
