package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a single token bucket.
//
// requestsPerSecond = 0 disables limiting entirely.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a token bucket refilled at requestsPerSecond with the given
// burst capacity.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = 1
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow consumes one token if available and reports whether it did.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// KeyedLimiter keeps one token bucket per key (typically a caller identity).
//
// Buckets idle for longer than the configured TTL are evicted lazily during
// Allow calls, so memory stays proportional to the number of active keys.
//
// Thread safety:
// All methods are safe for concurrent use.
type KeyedLimiter struct {
	rps     uint
	burst   uint
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[string]*entry
	lastSweep time.Time
}

type entry struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// NewKeyed creates a per-key limiter. idleTTL <= 0 defaults to 10 minutes.
func NewKeyed(requestsPerSecond, burst uint, idleTTL time.Duration) *KeyedLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &KeyedLimiter{
		rps:     requestsPerSecond,
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		buckets: make(map[string]*entry),
	}
}

// Allow consumes one token from key's bucket.
func (k *KeyedLimiter) Allow(key string) bool {
	if k.rps == 0 {
		return true
	}

	k.mu.Lock()
	now := k.now()
	k.sweepLocked(now)

	e, ok := k.buckets[key]
	if !ok {
		e = &entry{limiter: New(k.rps, k.burst)}
		k.buckets[key] = e
	}
	e.lastSeen = now
	k.mu.Unlock()

	return e.limiter.Allow()
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

func (k *KeyedLimiter) sweepLocked(now time.Time) {
	if now.Sub(k.lastSweep) < k.idleTTL {
		return
	}
	k.lastSweep = now

	for key, e := range k.buckets {
		if now.Sub(e.lastSeen) >= k.idleTTL {
			delete(k.buckets, key)
		}
	}
}
