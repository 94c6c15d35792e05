// Package ratelimit throttles inbound events per user.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of Check.
type Decision int

const (
	// Allow lets the event through.
	Allow Decision = iota
	// Block drops the event; the user just crossed a limit and should be warned once.
	Block
	// Silence drops the event without a reply; the user is already blocked.
	Silence
)

const idleTTL = 10 * time.Minute

// Limiter enforces a per-second and a per-minute budget per user. Crossing either
// blocks the user for a fixed duration.
type Limiter struct {
	perSecond int
	perMinute int
	block     time.Duration

	mu        sync.Mutex
	users     map[int64]*userState
	lastPrune time.Time
}

type userState struct {
	second       *rate.Limiter
	minute       *rate.Limiter
	blockedUntil time.Time
	lastSeen     time.Time
}

// New returns a Limiter. Non-positive arguments disable the corresponding limit.
func New(perSecond, perMinute int, block time.Duration) *Limiter {
	return &Limiter{
		perSecond: perSecond,
		perMinute: perMinute,
		block:     block,
		users:     make(map[int64]*userState),
	}
}

func (l *Limiter) fresh() *userState {
	st := &userState{}
	if l.perSecond > 0 {
		st.second = rate.NewLimiter(rate.Limit(l.perSecond), l.perSecond)
	}
	if l.perMinute > 0 {
		st.minute = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
	}
	return st
}

// Check records an event from userID at now and decides whether to handle it.
func (l *Limiter) Check(userID int64, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)

	st, ok := l.users[userID]
	if !ok {
		st = l.fresh()
		l.users[userID] = st
	}
	st.lastSeen = now

	if !st.blockedUntil.IsZero() {
		if now.Before(st.blockedUntil) {
			return Silence
		}
		fresh := l.fresh()
		fresh.lastSeen = now
		l.users[userID] = fresh
		st = fresh
	}

	secondOK := st.second == nil || st.second.AllowN(now, 1)
	minuteOK := st.minute == nil || st.minute.AllowN(now, 1)
	if secondOK && minuteOK {
		return Allow
	}
	st.blockedUntil = now.Add(l.block)
	return Block
}

// BlockedUntil returns when the user's block ends, zero if not blocked at now.
func (l *Limiter) BlockedUntil(userID int64, now time.Time) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.users[userID]; ok && now.Before(st.blockedUntil) {
		return st.blockedUntil
	}
	return time.Time{}
}

func (l *Limiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < time.Minute {
		return
	}
	l.lastPrune = now
	for id, st := range l.users {
		if now.Sub(st.lastSeen) > idleTTL && !now.Before(st.blockedUntil) {
			delete(l.users, id)
		}
	}
}
