// Package retry implements exponential-backoff retries for transient
// store failures.
//
// The wait schedule is BaseDelay * 2^attempt with attempt zero-indexed,
// deliberately uncapped and unjittered. Callers with many concurrent
// invocations against one endpoint may want to revisit that before raising
// MaxAttempts.
package retry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Config controls retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 fall back to DefaultMaxAttempts.
	MaxAttempts int

	// BaseDelay is the unit of the 2^attempt backoff schedule.
	// Zero falls back to DefaultBaseDelay.
	BaseDelay time.Duration
}

const (
	// DefaultMaxAttempts is the default attempt budget.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the default backoff unit.
	DefaultBaseDelay = time.Second
)

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	return c
}

// Do runs op until it succeeds, fails permanently, or exhausts the attempt
// budget.
//
// retryable classifies failures; an error it rejects is returned
// immediately without further attempts. When the budget runs out the last
// error is returned unchanged, so callers keep its classification.
// A warning is logged before each wait.
func Do[T any](ctx context.Context, cfg Config, log *zap.Logger, retryable func(error) bool, op func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		wait := cfg.BaseDelay << attempt
		log.Warn("transient failure, backing off",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("wait", wait),
			zap.Error(err))

		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
