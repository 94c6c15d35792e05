package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/intakebot/internal/logger"
	"github.com/edgard/intakebot/internal/resilience"
)

var (
	errFlaky   = errors.New("connection reset")
	errBlocked = errors.New("forbidden: bot was blocked by the user")
)

func newGuard(attempts, maxFailures int) *resilience.Guard {
	return resilience.New(resilience.Settings{
		Name:         "test",
		Attempts:     attempts,
		Backoff:      time.Millisecond,
		MaxFailures:  maxFailures,
		OpenDuration: time.Hour,
		Permanent:    func(err error) bool { return errors.Is(err, errBlocked) },
	}, logger.Discard())
}

func TestRetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	g := newGuard(3, 10)
	calls := 0

	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestGivesUpAfterAttempts(t *testing.T) {
	t.Parallel()
	g := newGuard(2, 10)
	calls := 0

	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		return errFlaky
	})

	require.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 2, calls)
}

func TestPermanentErrorsAreNotRetriedAndKeepBreakerClosed(t *testing.T) {
	t.Parallel()
	g := newGuard(3, 2)

	for i := 0; i < 5; i++ {
		calls := 0
		err := g.Do(context.Background(), func(context.Context) error {
			calls++
			return errBlocked
		})
		require.ErrorIs(t, err, errBlocked)
		assert.Equal(t, 1, calls)
	}
	assert.Equal(t, "closed", g.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	g := newGuard(1, 2)
	fail := func(context.Context) error { return errFlaky }

	require.Error(t, g.Do(context.Background(), fail))
	require.Error(t, g.Do(context.Background(), fail))
	assert.Equal(t, "open", g.State())

	called := false
	err := g.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.False(t, called)
}

func TestCancelledContextStopsRetries(t *testing.T) {
	t.Parallel()
	g := newGuard(5, 10)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := g.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errFlaky
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
