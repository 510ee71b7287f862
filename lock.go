package cpo

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// SimpleLock is a plain mutual-exclusion lock, built on a single-token
// buffered channel rather than sync.Mutex so TryLockFor can race the token
// against a clock-driven deadline the same way this module's Parker does,
// instead of polling. It is not reentrant: Go exposes no stable goroutine
// identity to check "is the current caller the owner" against, so a
// caller that needs reentrancy passes an explicit token instead.
type SimpleLock struct {
	Named
	ch chan struct{}
}

// NewSimpleLock returns an unlocked SimpleLock.
func NewSimpleLock(name string) *SimpleLock {
	l := &SimpleLock{ch: make(chan struct{}, 1)}
	l.ch <- struct{}{}
	l.SetName(name)
	return l
}

// Lock acquires the lock, blocking until it is free.
func (l *SimpleLock) Lock() { <-l.ch }

// Unlock releases the lock. Unlocking an unlocked SimpleLock panics, same
// as sync.Mutex.
func (l *SimpleLock) Unlock() {
	select {
	case l.ch <- struct{}{}:
	default:
		panic("cpo: unlock of unlocked SimpleLock " + l.Name())
	}
}

// TryLock attempts to acquire the lock without blocking.
func (l *SimpleLock) TryLock() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// WithLock acquires the lock, runs body, and releases the lock afterwards
// on every path out of body, including a panic.
func (l *SimpleLock) WithLock(body func()) {
	l.Lock()
	defer l.Unlock()
	body()
}

// TryLockFor attempts to acquire the lock within timeout, measured by
// clock (nil uses the real clock). On success it runs body and releases
// the lock afterwards on every path; on timeout it runs otherwise without
// ever having acquired the lock.
func (l *SimpleLock) TryLockFor(clock clockz.Clock, timeout time.Duration, body, otherwise func()) {
	if clock == nil {
		clock = clockz.RealClock
	}
	select {
	case <-l.ch:
	case <-clock.After(timeout):
		otherwise()
		return
	}
	defer l.Unlock()
	body()
}

// Monitor pairs a SimpleLock with a condition variable and a record of
// who's currently waiting on it. Wait/Signal/Broadcast are already
// exactly what sync.Cond gives for free; the waiter bookkeeping backing
// WaitingFor is this module's own addition on top.
type Monitor struct {
	*SimpleLock
	cond *sync.Cond

	waiters []any
}

// NewMonitor returns a Monitor ready to use.
func NewMonitor(name string) *Monitor {
	l := NewSimpleLock(name)
	return &Monitor{SimpleLock: l, cond: sync.NewCond(l)}
}

// Wait releases the lock and blocks until Signal or Broadcast wakes it,
// then reacquires the lock before returning. Callers must hold the lock.
// tag is recorded for the duration of the wait so a concurrent WaitingFor
// call can discover and match this waiter; pass nil if the caller has no
// need to be discoverable. tag must be comparable with ==.
func (m *Monitor) Wait(tag any) {
	m.waiters = append(m.waiters, tag)
	m.cond.Wait()
	m.removeWaiter(tag)
}

func (m *Monitor) removeWaiter(tag any) {
	for i, w := range m.waiters {
		if w == tag {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}

// Signal wakes one goroutine waiting in Wait, if any. Callers must hold
// the lock.
func (m *Monitor) Signal() { m.cond.Signal() }

// Broadcast wakes every goroutine waiting in Wait. Callers must hold the
// lock.
func (m *Monitor) Broadcast() { m.cond.Broadcast() }

// WaitingFor reports whether some currently-recorded waiter's tag
// satisfies match, without blocking to wait for the lock: if another
// caller currently holds it, WaitingFor returns false immediately rather
// than contending for it just to look.
func (m *Monitor) WaitingFor(match func(tag any) bool) bool {
	if !m.TryLock() {
		return false
	}
	defer m.Unlock()
	for _, w := range m.waiters {
		if match(w) {
			return true
		}
	}
	return false
}
