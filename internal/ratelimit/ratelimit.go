package ratelimit

import (
	"sync"
	"time"
)

// bucket tracks the token state for a single key.
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Limiter implements a token-bucket rate limiter keyed by arbitrary
// string identifiers, in practice the client address of a login
// attempt. Invite and season codes are short, so the login endpoint
// throttles guessing.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
	now     func() time.Time // injectable clock for testing
}

// New creates a Limiter that allows rate requests per window.
func New(rate int, window time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		window:  window,
		now:     time.Now,
	}
}

// getBucket returns the bucket for key, creating one if it doesn't exist.
// Must be called with l.mu held.
func (l *Limiter) getBucket(key string) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			tokens:     float64(l.rate),
			lastRefill: l.now(),
		}
		l.buckets[key] = b
	}
	return b
}

// refill adds tokens to the bucket based on elapsed time since the last
// refill. Must be called with l.mu held.
func (l *Limiter) refill(b *bucket) {
	now := l.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}

	// Tokens accumulate at rate/window per second.
	refillRate := float64(l.rate) / l.window.Seconds()
	b.tokens += elapsed * refillRate
	if b.tokens > float64(l.rate) {
		b.tokens = float64(l.rate)
	}
	b.lastRefill = now
}

// Allow checks whether a request identified by key is permitted. Returns
// true and consumes one token when allowed, false when the limit is
// exceeded.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.getBucket(key)
	l.refill(b)

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter reports how long until the next token for key becomes
// available. Zero means a request would be allowed now.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.getBucket(key)
	l.refill(b)

	if b.tokens >= 1 {
		return 0
	}

	refillRate := float64(l.rate) / l.window.Seconds()
	deficit := 1 - b.tokens
	return time.Duration(deficit / refillRate * float64(time.Second))
}
