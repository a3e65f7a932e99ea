package ratelimit

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// Default pacing, matching the limits Notion documents for integrations.
const (
	// DefaultPerSecond is the sustained request rate.
	DefaultPerSecond = 3.0

	// DefaultBurst is the number of requests that may be sent back to back.
	DefaultBurst = 5
)

// ErrInvalidLimit is returned by New for a non-positive rate or burst.
var ErrInvalidLimit = errors.New("rate limit and burst must be positive")

// Limiter gates outbound requests.
type Limiter interface {
	// Wait blocks until a token is available and consumes it, or returns the
	// context's error if ctx is done first.
	Wait(ctx context.Context) error

	// Limit returns the sustained rate of the limiter.
	Limit() rate.Limit
}

// New returns a token bucket refilling at perSecond tokens per second up to
// burst tokens. The bucket starts full.
//
// Waiters are served in reservation order, so a caller that has been waiting
// for a long time is never overtaken indefinitely.
func New(perSecond float64, burst int) (Limiter, error) {
	if perSecond <= 0 || burst <= 0 {
		return nil, ErrInvalidLimit
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst), nil
}

// Default returns a limiter with DefaultPerSecond and DefaultBurst.
func Default() Limiter {
	return rate.NewLimiter(rate.Limit(DefaultPerSecond), DefaultBurst)
}

// Unlimited returns a limiter that never blocks. It is meant for tests.
func Unlimited() Limiter {
	return rate.NewLimiter(rate.Inf, 0)
}

// Multi combines limiters; Wait takes a token from each of them, strictest
// first. Limit reports the strictest rate.
func Multi(limiters ...Limiter) Limiter {
	sorted := make([]Limiter, len(limiters))
	copy(sorted, limiters)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Limit() < sorted[j].Limit()
	})
	return &multiLimiter{limiters: sorted}
}

type multiLimiter struct {
	limiters []Limiter
}

func (l *multiLimiter) Wait(ctx context.Context) error {
	for _, lim := range l.limiters {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (l *multiLimiter) Limit() rate.Limit {
	if len(l.limiters) == 0 {
		return rate.Inf
	}
	return l.limiters[0].Limit()
}

// Per returns the rate of eventCount events per duration.
//
//	ratelimit.Per(90, time.Minute) // 1.5 per second
func Per(eventCount int, duration time.Duration) rate.Limit {
	if eventCount <= 0 {
		return 0
	}
	return rate.Every(duration / time.Duration(eventCount))
}

// FromLimit wraps an x/time/rate limit as a Limiter with the given burst.
func FromLimit(limit rate.Limit, burst int) Limiter {
	return rate.NewLimiter(limit, burst)
}
