package api

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an idle key's limiter survives before the
// cleanup pass drops it.
const limiterIdleTTL = 10 * time.Minute

// RateLimiter throttles widget traffic per API key. Each key gets its own
// token bucket; idle buckets are evicted periodically so the table does not
// grow with every key ever seen.
//
// RateLimiter is safe for concurrent use by multiple goroutines.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	perSecond rate.Limit
	burst     int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per key with
// the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
	}
}

// Allow reports whether a request for the given key may proceed now.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	l.mu.Unlock()

	return b.limiter.Allow()
}

// Run evicts idle buckets until the context is cancelled. Start it once
// alongside the server.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(limiterIdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(time.Now().Add(-limiterIdleTTL))
		}
	}
}

func (l *RateLimiter) evict(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
