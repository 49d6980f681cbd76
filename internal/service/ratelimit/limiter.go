package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key. Every key starts full with burst
// tokens and refills at refillPerSec.
type Limiter struct {
	mu        sync.Mutex
	m         map[string]*client
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastPrune time.Time
	now       func() time.Time
}

// New creates a limiter. A burst below one disables limiting.
func New(burst, refillPerSec float64) *Limiter {
	return &Limiter{
		m:       make(map[string]*client),
		limit:   rate.Limit(refillPerSec),
		burst:   int(burst),
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// WithClock overrides the clock.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow reports whether one request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	if l.burst < 1 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)

	c, ok := l.m[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.m[key] = c
	}
	c.lastSeen = now
	return c.lim.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// pruneLocked drops keys idle longer than idleTTL; their buckets would be full anyway.
func (l *Limiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.idleTTL {
		return
	}
	l.lastPrune = now
	for k, c := range l.m {
		if now.Sub(c.lastSeen) >= l.idleTTL {
			delete(l.m, k)
		}
	}
}
