// Package retry provides a small bounded-retry helper for calls against
// unreliable upstreams.
package retry

import (
	"context"
	"time"
)

// Do calls fn up to maxAttempts times, doubling the delay between attempts
// starting at baseDelay. It returns nil on the first successful call, or the
// last error once all attempts fail. Context cancellation is honoured between
// attempts.
func Do(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		// No sleep after the last failed attempt.
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return err
}
