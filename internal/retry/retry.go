// Package retry provides a small exponential-backoff helper for calls that
// talk to flaky externals.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Config controls Do. Attempts is the total number of tries; Delay is the
// initial backoff, doubled after each failure with jitter, capped at MaxDelay.
type Config struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultConfig retries twice with a short initial backoff.
var DefaultConfig = Config{
	Attempts: 2,
	Delay:    100 * time.Millisecond,
	MaxDelay: 2 * time.Second,
}

// Do runs fn until it succeeds, attempts are exhausted, or ctx is done.
// Failures between attempts are logged at warn level under op.
func Do(ctx context.Context, cfg Config, op string, fn func() error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultConfig.Delay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig.MaxDelay
	}

	var lastErr error
	delay := cfg.Delay
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.Attempts {
			break
		}

		slog.Warn("operation failed, retrying",
			"op", op,
			"attempt", attempt,
			"delay", delay.String(),
			"error", lastErr,
		)

		jittered := delay + time.Duration(rand.Int63n(int64(delay)/2+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, cfg.Attempts, lastErr)
}
