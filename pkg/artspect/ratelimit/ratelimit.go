// Package ratelimit paces outbound calls to one external service.
package ratelimit

import (
	"fmt"
	"math"
	"time"

	"github.com/cognicore/artspect/pkg/artspect/internalerr"
)

// Limiter enforces a minimum interval between consecutive calls. One
// shared instance serializes all calls to a service: the driver is
// single-threaded, so no locking is needed.
type Limiter struct {
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// New builds a limiter for the given calls-per-second budget. The
// interval is floor(1000/rate) milliseconds.
func New(callsPerSecond float64) (*Limiter, error) {
	if callsPerSecond <= 0 {
		return nil, fmt.Errorf("%w: rate must be positive, got %v", internalerr.ErrInvalidConfig, callsPerSecond)
	}
	return &Limiter{
		interval: time.Duration(math.Floor(1000/callsPerSecond)) * time.Millisecond,
		now:      time.Now,
		sleep:    time.Sleep,
	}, nil
}

// Acquire blocks until the interval has elapsed since the previous
// Acquire returned. Measuring from the previous return, not dispatch,
// keeps a slow call from earning a burst right after it.
func (l *Limiter) Acquire() {
	if !l.last.IsZero() {
		if wait := l.interval - l.now().Sub(l.last); wait > 0 {
			l.sleep(wait)
		}
	}
	l.last = l.now()
}

// Interval reports the enforced spacing between calls.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
