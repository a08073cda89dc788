package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestForeverSucceedsEventually(t *testing.T) {
	attempts := 0
	err := Forever(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestForeverRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Forever(ctx, func() error {
		return errors.New("always fails")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithMaxAttemptsSucceedsWithinBudget(t *testing.T) {
	attempts := 0
	err := WithMaxAttempts(context.Background(), 5, func() error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestWithMaxAttemptsExhausted(t *testing.T) {
	attempts := 0
	sentinel := errors.New("permanent failure")
	err := WithMaxAttempts(context.Background(), 3, func() error {
		attempts++
		return sentinel
	})
	require.ErrorIs(t, err, ErrMaxAttemptsExceeded)
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 3, attempts)
}

func TestWithMaxAttemptsTimingBounded(t *testing.T) {
	start := time.Now()
	_ = WithMaxAttempts(context.Background(), 3, func() error {
		return errors.New("fail")
	})
	// initialBackoff is 100ms; 3 attempts means at most 2 sleeps, each
	// jittered around 100ms/200ms, so this must stay well under a second.
	require.Less(t, time.Since(start), time.Second)
}
