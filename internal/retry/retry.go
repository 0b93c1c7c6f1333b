// Package retry runs transient operations again with growing delays.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

type Config struct {
	MaxAttempts int
	Delay       time.Duration
	// Multiplier grows the delay per attempt: Delay * Multiplier^(attempt-1).
	// Values <= 1 keep the delay constant.
	Multiplier float64
	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration
}

// Backoff is the wait before the attempt following attempt (1-based).
func (c Config) Backoff(attempt int) time.Duration {
	d := c.Delay
	if c.Multiplier > 1 {
		d = time.Duration(float64(c.Delay) * math.Pow(c.Multiplier, float64(attempt-1)))
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// WithRetry calls fn until it succeeds, returns a permanent error, the
// attempts run out or ctx is done.
func WithRetry(ctx context.Context, cfg Config, fn func() error) error {
	_, err := Do(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Do is WithRetry for functions returning a value.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	attempts := max(1, cfg.MaxAttempts)

	for attempt := 1; ; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			return zero, p.err
		}
		if attempt >= attempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", attempts, err)
		}

		timer := time.NewTimer(cfg.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
