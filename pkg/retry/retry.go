package retry

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/cenkalti/backoff/v5"
)

type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	// Retryable decides whether err is worth another attempt. nil retries everything.
	Retryable func(err error) bool
	Logger    *logger_i.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

func (cfg Config) withDefaults() Config {
	d := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = d.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = d.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = d.MaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = d.Multiplier
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

func (cfg Config) backOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.InitialDelay,
		RandomizationFactor: cfg.JitterFraction,
		Multiplier:          cfg.Multiplier,
		MaxInterval:         cfg.MaxDelay,
	}
	b.Reset()
	return b
}

func Do(ctx context.Context, cfg Config, operation func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, operation()
	})
	return err
}

// DoWithResult runs operation until it succeeds, fails with a non-retryable error,
// runs out of attempts or ctx is done. The last operation error is returned unwrapped.
func DoWithResult[T any](ctx context.Context, cfg Config, operation func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	attempt := 0
	op := func() (T, error) {
		attempt++
		v, err := operation()
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.Info("operation succeeded after retry", "attempt", attempt)
			}
			return v, nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(cfg.backOff()),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
	}
	if cfg.Logger != nil {
		opts = append(opts, backoff.WithNotify(func(err error, delay time.Duration) {
			cfg.Logger.Warn("operation failed, retrying",
				"error", err, "attempt", attempt, "max_attempts", cfg.MaxAttempts, "delay", delay)
		}))
	}

	v, err := backoff.Retry(ctx, op, opts...)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return v, err
}
