// Package ratelimit provides the advisory per-endpoint rate limiter and the
// ordered fallback chain used by source adapters.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum delay between calls to each named endpoint.
// State is in-memory and per-process; nothing survives restart.
type Limiter struct {
	mu          sync.RWMutex
	limiters    map[string]*rate.Limiter
	minInterval time.Duration
}

// NewLimiter creates a limiter with the given floor between calls per key.
func NewLimiter(minInterval time.Duration) *Limiter {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &Limiter{
		limiters:    make(map[string]*rate.Limiter),
		minInterval: minInterval,
	}
}

// Acquire blocks until at least the configured interval has elapsed since the
// last successful Acquire for key, then returns.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// Allow reports whether a call for key would proceed without waiting.
// The token is consumed when it returns true.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if lim, ok := l.limiters[key]; ok {
		return lim
	}

	lim = rate.NewLimiter(rate.Every(l.minInterval), 1)
	l.limiters[key] = lim
	return lim
}
