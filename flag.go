package cpo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
)

// Flag is a one-shot, non-idempotent release latch: Release may be called
// exactly once, Acquire may be waited on by exactly one caller at a time.
// A second concurrent waiter is a usage error (ErrOvertaken).
type Flag struct {
	Named
	available   atomic.Bool
	released    atomic.Bool
	interrupted atomic.Bool
	waiting     atomic.Pointer[Parker]
}

// NewFlag returns an unavailable Flag.
func NewFlag(name string) *Flag {
	f := &Flag{}
	f.SetName(name)
	return f
}

func (f *Flag) String() string {
	av := "unavailable"
	if f.available.Load() {
		av = "available"
	}
	cancelled := ""
	if f.interrupted.Load() {
		cancelled = " [cancelled]"
	}
	return fmt.Sprintf("FLAG %s: %s%s", f.Name(), av, cancelled)
}

// DebugState implements registry.Debuggable.
func (f *Flag) DebugState() string { return f.String() }

// Cancelled reports whether Cancel was called.
func (f *Flag) Cancelled() bool { return f.interrupted.Load() }

// Cancel marks the flag cancelled and wakes any waiter without requiring a
// matching Release — used to unwind a wait when the reason for it no
// longer applies.
func (f *Flag) Cancel() {
	f.interrupted.Store(true)
	f.available.Store(true)
	if w := f.waiting.Swap(nil); w != nil {
		w.Unpark()
	}
}

// Acquire blocks until Release or Cancel is called, or ctx is cancelled.
func (f *Flag) Acquire(ctx context.Context) error {
	if f.available.Load() {
		return nil
	}
	p := NewParker()
	if !f.waiting.CompareAndSwap(nil, p) {
		return fmt.Errorf("%w: %s already has a waiter", ErrOvertaken, f.Name())
	}
	for !f.available.Load() {
		if err := p.Park(ctx); err != nil {
			f.waiting.CompareAndSwap(p, nil)
			return err
		}
	}
	return nil
}

// TryAcquire blocks for at most timeout (measured by clock) for Release or
// Cancel.
func (f *Flag) TryAcquire(clock clockz.Clock, timeout time.Duration) (bool, error) {
	if f.available.Load() {
		return true, nil
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	p := NewParker()
	if !f.waiting.CompareAndSwap(nil, p) {
		return false, fmt.Errorf("%w: %s already has a waiter", ErrOvertaken, f.Name())
	}
	deadline := clock.Now().Add(timeout)
	for {
		if f.available.Load() {
			return true, nil
		}
		remaining := deadline.Sub(clock.Now())
		if remaining <= 0 {
			f.waiting.CompareAndSwap(p, nil)
			return false, nil
		}
		if p.ParkTimeout(clock, remaining) {
			continue
		}
		if clock.Now().Before(deadline) {
			continue
		}
		f.waiting.CompareAndSwap(p, nil)
		return false, nil
	}
}

// Release makes the flag available and wakes the waiter, if any. Calling
// Release twice is a logic error — flags are one-shot.
func (f *Flag) Release() error {
	if !f.released.CompareAndSwap(false, true) {
		return fmt.Errorf("cpo: flag %s already released", f.Name())
	}
	f.available.Store(true)
	if w := f.waiting.Swap(nil); w != nil {
		w.Unpark()
	}
	return nil
}
