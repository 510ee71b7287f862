package cpo

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
)

// Parker is a one-shot waker: exactly one goroutine parks on it, exactly one
// call (possibly from a different goroutine, possibly before Park is ever
// called) unparks it. It's built entirely from a buffered channel rather
// than any runtime-internals hook: Go gives no stable handle on an OS
// thread or goroutine to park by identity, so every waiter gets its own
// Parker instead of being looked up in a global table keyed by thread id.
//
// A Parker holds at most one pending wake: Unpark stores it, and Park,
// ParkTimeout or TryConsume takes it. Parkers are not pooled; each waiter
// allocates its own with NewParker and may park on it repeatedly while it
// waits.
type Parker struct {
	wake chan struct{}
}

// NewParker returns a fresh, un-unparked Parker.
func NewParker() *Parker {
	return &Parker{wake: make(chan struct{}, 1)}
}

// Unpark wakes the parked (or not-yet-parked) waiter. Idempotent: a second
// Unpark is a silent no-op, matching the "unpark-before-park is honored"
// requirement — the token sits in the channel's buffer until Park consumes
// it.
func (p *Parker) Unpark() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Park blocks until Unpark is called, or ctx is cancelled. It returns
// ctx.Err() in the latter case.
func (p *Parker) Park(ctx context.Context) error {
	select {
	case <-p.wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryConsume non-blockingly reports whether Unpark has already fired,
// consuming the wake token if so. Used to detect the race between a
// timed-out waiter giving up and a concurrent Unpark landing anyway.
func (p *Parker) TryConsume() bool {
	select {
	case <-p.wake:
		return true
	default:
		return false
	}
}

// ParkTimeout blocks until Unpark is called or timeout elapses against
// clock, whichever comes first. It reports whether Unpark won the race.
func (p *Parker) ParkTimeout(clock clockz.Clock, timeout time.Duration) bool {
	if clock == nil {
		clock = clockz.RealClock
	}
	timer := clock.After(timeout)
	select {
	case <-p.wake:
		return true
	case <-timer:
		return false
	}
}

// ParkUntilElapsedOr blocks until Unpark fires or deadline (an absolute
// clock.Now()-comparable instant) passes. It returns the remaining
// duration to the deadline at wake time — positive if Unpark won, zero or
// negative if the deadline passed first.
func (p *Parker) ParkUntilElapsedOr(clock clockz.Clock, deadline time.Time) time.Duration {
	if clock == nil {
		clock = clockz.RealClock
	}
	remaining := deadline.Sub(clock.Now())
	if remaining <= 0 {
		select {
		case <-p.wake:
			return 1
		default:
			return 0
		}
	}
	woken := p.ParkTimeout(clock, remaining)
	remaining = deadline.Sub(clock.Now())
	if woken && remaining <= 0 {
		return 1
	}
	return remaining
}
