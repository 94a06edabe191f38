package decoder

import (
	"context"
	"fmt"
	"time"
)

// Strategy is a linear back-off table, adapted from the retrieved corpus's
// shared backoff package: a small slice of delays walked in order, rather
// than a computed exponential curve.
type Strategy struct {
	Delays []time.Duration
}

// restartBackoff is the §4.1 restart policy: up to 3 attempts, waiting 1s
// then 2s between them.
var restartBackoff = Strategy{Delays: []time.Duration{1 * time.Second, 2 * time.Second}}

// RetryFunc is one restart attempt. attempt is 1-indexed.
type RetryFunc func(ctx context.Context, attempt int) error

// Retry calls fn up to len(strategy.Delays)+1 times, sleeping the
// corresponding delay between attempts. It returns nil on the first
// success, or a wrapped error naming the last failure once attempts are
// exhausted.
func Retry(ctx context.Context, strategy Strategy, fn RetryFunc) error {
	attempts := len(strategy.Delays) + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := fn(ctx, i+1); err != nil {
			lastErr = err
			if i == attempts-1 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(strategy.Delays[i]):
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("decoder: failed after %d attempts: %w", attempts, lastErr)
}
