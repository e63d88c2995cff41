// Package ratelimit provides a per-destination send limiter for outbound
// platform adapters. Each destination (channel, user, webhook) gets its own
// token bucket enforcing a minimum interval between sends; callers that
// arrive early block in Wait until their slot opens.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/House-lovers7/tone-bridge/errors"
)

// SendLimiter enforces a minimum interval between sends per destination.
// It does not serialize rule evaluation; only the outbound send path waits.
type SendLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

// NewSendLimiter creates a limiter enforcing the given minimum interval
// between sends to the same destination.
func NewSendLimiter(minInterval time.Duration) (*SendLimiter, error) {
	if minInterval <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "SendLimiter", "NewSendLimiter",
			"minimum interval must be positive")
	}
	return &SendLimiter{
		interval: minInterval,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// Wait blocks until a send to the destination is allowed or ctx is done.
// The first send to a destination proceeds immediately.
func (l *SendLimiter) Wait(ctx context.Context, destination string) error {
	if destination == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "SendLimiter", "Wait",
			"destination cannot be empty")
	}
	return l.limiterFor(destination).Wait(ctx)
}

// Allow reports whether a send to the destination may proceed right now
// without blocking, consuming the slot if so.
func (l *SendLimiter) Allow(destination string) bool {
	if destination == "" {
		return false
	}
	return l.limiterFor(destination).Allow()
}

// Forget drops the limiter state for a destination. Subsequent sends start
// fresh with an immediate first slot.
func (l *SendLimiter) Forget(destination string) {
	l.mu.Lock()
	delete(l.limiters, destination)
	l.mu.Unlock()
}

// Destinations returns the number of destinations currently tracked.
func (l *SendLimiter) Destinations() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *SendLimiter) limiterFor(destination string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[destination]
	if !ok {
		// Burst of 1: exactly one send per interval, first one immediate
		limiter = rate.NewLimiter(rate.Every(l.interval), 1)
		l.limiters[destination] = limiter
	}
	return limiter
}
