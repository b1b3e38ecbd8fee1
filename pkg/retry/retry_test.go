package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	attempts, err := fastPolicy(3).Do(context.Background(), nil, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	attempts, err := fastPolicy(5).Do(context.Background(),
		func(error) bool { return true },
		func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("rejected")
	calls := 0
	attempts, err := fastPolicy(5).Do(context.Background(),
		func(err error) bool { return !errors.Is(err, permanent) },
		func(ctx context.Context) error {
			calls++
			return permanent
		})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	failure := errors.New("flaky")
	attempts, err := fastPolicy(3).Do(context.Background(),
		func(error) bool { return true },
		func(ctx context.Context) error { return failure })
	require.ErrorIs(t, err, failure)
	assert.Equal(t, 3, attempts)
}

func TestDoHonorsContextDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxAttempts: 5, BaseDelay: time.Hour}

	attempts, err := policy.Do(ctx,
		func(error) bool { return true },
		func(ctx context.Context) error {
			cancel()
			return errors.New("transient")
		})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
