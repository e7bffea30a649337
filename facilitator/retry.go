package facilitator

import (
	"context"
	"fmt"
	"math/big"
	"time"
)

// chainReadBackoff configures the exponential backoff schedule for the
// read-only balance/allowance RPC calls inside verify. These calls have no
// side effects, so retrying them on a transient RPC hiccup is always safe,
// unlike the transferFrom leg of settle, which is never retried here.
type chainReadBackoff struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
}

var defaultChainReadBackoff = chainReadBackoff{
	maxAttempts:  3,
	initialDelay: 100 * time.Millisecond,
	maxDelay:     1 * time.Second,
	multiplier:   2.0,
}

// withChainReadRetry calls fn under b's backoff schedule, retrying any
// error fn returns until it succeeds, ctx is cancelled, or attempts are
// exhausted.
func withChainReadRetry(ctx context.Context, b chainReadBackoff, fn func() (*big.Int, error)) (*big.Int, error) {
	var lastErr error
	delay := b.initialDelay

	for attempt := 0; attempt < b.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled: %w", err)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < b.maxAttempts-1 {
			select {
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * b.multiplier)
				if delay > b.maxDelay {
					delay = b.maxDelay
				}
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
