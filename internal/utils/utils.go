package utils

import (
	"context"
	"time"
)

var sleep = time.Sleep

// WaitFor blocks for d or until ctx is done.
func WaitFor(ctx context.Context, d time.Duration) error {
	return WaitForWith(ctx, d, sleep)
}

// WaitForWith is WaitFor with a custom sleeper, so callers can stub delays in tests.
func WaitForWith(ctx context.Context, d time.Duration, sleeper func(time.Duration)) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleeper(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
