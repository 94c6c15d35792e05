package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/intakebot/internal/ratelimit"
)

var t0 = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func TestPerSecondLimitBlocksThenRecovers(t *testing.T) {
	t.Parallel()
	l := ratelimit.New(3, 20, time.Minute)

	for i := 0; i < 3; i++ {
		assert.Equal(t, ratelimit.Allow, l.Check(1, t0))
	}
	assert.Equal(t, ratelimit.Block, l.Check(1, t0))
	assert.Equal(t, t0.Add(time.Minute), l.BlockedUntil(1, t0))

	assert.Equal(t, ratelimit.Silence, l.Check(1, t0.Add(time.Second)))
	assert.Equal(t, ratelimit.Silence, l.Check(1, t0.Add(59*time.Second)))

	assert.Equal(t, ratelimit.Allow, l.Check(1, t0.Add(61*time.Second)))
	assert.True(t, l.BlockedUntil(1, t0.Add(61*time.Second)).IsZero())
}

func TestPerMinuteLimit(t *testing.T) {
	t.Parallel()
	l := ratelimit.New(100, 5, time.Minute)

	for i := 0; i < 5; i++ {
		assert.Equal(t, ratelimit.Allow, l.Check(1, t0.Add(time.Duration(i)*time.Second)), i)
	}
	assert.Equal(t, ratelimit.Block, l.Check(1, t0.Add(5*time.Second)))
}

func TestUsersAreIndependent(t *testing.T) {
	t.Parallel()
	l := ratelimit.New(1, 10, time.Minute)

	assert.Equal(t, ratelimit.Allow, l.Check(1, t0))
	assert.Equal(t, ratelimit.Block, l.Check(1, t0))
	assert.Equal(t, ratelimit.Allow, l.Check(2, t0))
}
