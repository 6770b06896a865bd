// Package ratelimit paces outbound traffic to the quote site. Rendered
// browser navigations and static document fetches draw from separate
// buckets, since a rendering session is far heavier on the far side than a
// plain GET.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Source identifies a traffic class.
type Source string

const (
	// SourceRendered covers full browser navigations.
	SourceRendered Source = "rendered"
	// SourceStatic covers plain HTTP document fetches.
	SourceStatic Source = "static"
)

// Limiter manages one token bucket per traffic class.
type Limiter struct {
	limiters map[Source]*rate.Limiter
	mu       sync.RWMutex
}

// New builds a limiter with the given sustained rates in requests per
// second. A rate of zero or below means unlimited for that class.
func New(renderedPerSec, staticPerSec float64) *Limiter {
	l := &Limiter{limiters: make(map[Source]*rate.Limiter)}
	l.limiters[SourceRendered] = newBucket(renderedPerSec)
	l.limiters[SourceStatic] = newBucket(staticPerSec)
	return l
}

// Unlimited builds a limiter that never blocks, for tests and dry runs.
func Unlimited() *Limiter {
	return New(0, 0)
}

func newBucket(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSec), 1)
}

// Wait blocks until the class's bucket permits an event, or the context is
// canceled.
func (l *Limiter) Wait(ctx context.Context, src Source) error {
	l.mu.RLock()
	limiter, exists := l.limiters[src]
	l.mu.RUnlock()

	if !exists {
		return nil
	}
	return limiter.Wait(ctx)
}

// Allow reports whether an event for the class may happen now.
func (l *Limiter) Allow(src Source) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[src]
	l.mu.RUnlock()

	if !exists {
		return true
	}
	return limiter.Allow()
}
