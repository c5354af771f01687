package util

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// WaitLimiter blocks until l admits one event. When the wait would outlast
// the deadline of ctx, the limiter fails early; that error is reported as
// context.DeadlineExceeded so callers can tell it from a real failure.
func WaitLimiter(ctx context.Context, l *rate.Limiter) error {
	err := l.Wait(ctx)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}
