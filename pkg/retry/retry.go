package retry

import (
	"context"
	"time"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// Do runs op up to MaxAttempts times with exponential backoff between
// attempts. retryable decides whether a failure is worth another try.
// The attempt count is returned alongside the final error.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, op func(ctx context.Context) error) (int, error) {
	attempts := 0
	for {
		attempts++
		err := op(ctx)
		if err == nil {
			return attempts, nil
		}
		if attempts >= p.MaxAttempts || retryable == nil || !retryable(err) {
			return attempts, err
		}

		delay := p.BaseDelay << (attempts - 1)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}

		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(delay):
		}
	}
}
