package util

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// unretryable marks an error that RetryWithBackoff must not retry.
type unretryable struct{ err error }

func (u unretryable) Error() string { return u.err.Error() }
func (u unretryable) Unwrap() error { return u.err }

// Unretryable wraps err so that RetryWithBackoff returns it immediately.
func Unretryable(err error) error {
	if err == nil {
		return nil
	}
	return unretryable{err: err}
}

// RetryWithBackoff calls fn up to maxRetries+1 times with exponential backoff
// starting at base.
// fn receives the current attempt number (0-indexed). It should return nil on success.
// Errors wrapped with Unretryable end the loop and are returned unwrapped.
// If the context is cancelled, RetryWithBackoff returns the context error immediately.
func RetryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		var stop unretryable
		if errors.As(lastErr, &stop) {
			return stop.err
		}

		// Don't wait after the last attempt
		if attempt == maxRetries {
			break
		}

		// Check context before sleeping
		if ctx.Err() != nil {
			return ctx.Err()
		}

		backoff := base * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
