// Package retry runs startup operations with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spherical-ai/doc-converter/internal/observability"
)

const (
	maxRetries     = 4
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second
)

// Config holds retry configuration.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     maxRetries,
		InitialBackoff: initialBackoff,
		MaxBackoff:     maxBackoff,
	}
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Do returns it without retrying. It returns nil
// for a nil err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked with
// Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Backoff returns the wait before retry number attempt (zero based):
// InitialBackoff * 2^attempt, capped at MaxBackoff.
func Backoff(attempt int, cfg Config) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}

// Do calls fn until it succeeds, the retries are exhausted or ctx is done.
// Errors marked with Permanent end the loop at once.
func Do(ctx context.Context, cfg Config, logger *observability.Logger, what string, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = observability.NopLogger()
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return fmt.Errorf("%s: %w", what, lastErr)
		}

		if attempt == cfg.MaxRetries {
			break
		}

		backoff := Backoff(attempt, cfg)
		logger.Warn().
			Err(lastErr).
			Str("operation", what).
			Int("attempt", attempt+1).
			Int("max_retries", cfg.MaxRetries).
			Dur("backoff", backoff).
			Msg("Operation failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", what, cfg.MaxRetries, lastErr)
}
