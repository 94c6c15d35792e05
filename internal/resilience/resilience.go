// Package resilience guards calls to external services with bounded retries and a
// circuit breaker, so a failing upstream is not hammered by every handler at once.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

// Settings configures a Guard. Zero values fall back to the defaults in New.
type Settings struct {
	Name         string
	Attempts     int
	Backoff      time.Duration
	MaxFailures  int
	OpenDuration time.Duration

	// Permanent reports errors that retrying cannot fix, such as a user who blocked
	// the bot. They are returned at once and do not count towards opening the breaker.
	Permanent func(error) bool
}

// Guard runs operations through a circuit breaker with exponential backoff between attempts.
type Guard struct {
	cb        *gobreaker.CircuitBreaker
	attempts  int
	backoff   time.Duration
	permanent func(error) bool
}

// New builds a Guard from s.
func New(s Settings, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	if s.Attempts <= 0 {
		s.Attempts = 1
	}
	if s.MaxFailures <= 0 {
		s.MaxFailures = 5
	}
	if s.OpenDuration <= 0 {
		s.OpenDuration = 30 * time.Second
	}
	permanent := s.Permanent
	if permanent == nil {
		permanent = func(error) bool { return false }
	}
	log := logger.With("component", "circuit_breaker", "name", s.Name)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(s.MaxFailures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || permanent(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &Guard{cb: cb, attempts: s.Attempts, backoff: s.Backoff, permanent: permanent}
}

// Do runs op until it succeeds, fails permanently, the breaker opens or attempts run out.
func (g *Guard) Do(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	wait := g.backoff

	for attempt := 1; attempt <= g.attempts; attempt++ {
		_, err := g.cb.Execute(func() (any, error) {
			return nil, op(ctx)
		})
		if err == nil {
			return nil
		}
		if g.permanent(err) || errors.Is(err, ErrCircuitOpen) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry abandoned: %w", ctx.Err())
		}
		lastErr = err

		if attempt < g.attempts && wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry abandoned: %w", ctx.Err())
			case <-timer.C:
			}
			wait *= 2
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", g.attempts, lastErr)
}

// State returns the breaker state name, for logs and tests.
func (g *Guard) State() string {
	return g.cb.State().String()
}
