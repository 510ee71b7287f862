package cpo

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
)

// waiter wraps a Parker with an abandoned flag, the lock-free substitute
// for "remove this waiter from the middle of the queue" — a capability the
// underlying MS-queue doesn't offer directly. A timed-out waiter marks
// itself abandoned instead; whichever Release call later dequeues it just
// skips over it and tries the next entry.
type waiter struct {
	parker    *Parker
	abandoned atomic.Bool
}

// semaphoreCore implements both BooleanSemaphore and CountingSemaphore: a
// permit count plus a FIFO queue of waiters, handed permits off directly on
// release rather than having waiters re-race a CAS, so acquisition order
// matches arrival order.
type semaphoreCore struct {
	Named
	permits   atomic.Int64
	waiters   *LockFreeQueue[*waiter]
	waiting   atomic.Int64
	cancelled atomic.Bool
}

func newSemaphoreCore(initial int64) *semaphoreCore {
	s := &semaphoreCore{waiters: NewLockFreeQueue[*waiter]()}
	s.permits.Store(initial)
	return s
}

// handoff gives the current permit to the oldest non-abandoned waiter, or
// banks it if there is none. Called by Release and by a cancelled waiter
// that discovers it won the permit race anyway.
func (s *semaphoreCore) handoff() {
	for {
		w, ok := s.waiters.Dequeue()
		if !ok {
			s.permits.Add(1)
			return
		}
		if w.abandoned.Load() {
			continue
		}
		w.parker.Unpark()
		return
	}
}

// Release returns one permit, either directly to the longest-waiting
// blocked caller or to the bank if nobody is waiting. Fails once the
// semaphore has been cancelled: Cancelled is a terminal state and no longer
// accepts permits.
func (s *semaphoreCore) Release() error {
	if s.cancelled.Load() {
		return ErrSemaphoreReleasedAfterCancel
	}
	s.handoff()
	return nil
}

// Acquire blocks until a permit is available, ctx is cancelled, or Cancel
// is called on the semaphore. A semaphore already cancelled when Acquire is
// called returns immediately with a SemaphoreCancelled.
func (s *semaphoreCore) Acquire(ctx context.Context) error {
	if s.cancelled.Load() {
		return NewSemaphoreCancelled(s.Name())
	}
	for {
		cur := s.permits.Load()
		if cur > 0 && s.permits.CompareAndSwap(cur, cur-1) {
			return nil
		}
		if cur <= 0 {
			break
		}
	}
	w := &waiter{parker: NewParker()}
	s.waiting.Add(1)
	s.waiters.Enqueue(w)
	err := w.parker.Park(ctx)
	s.waiting.Add(-1)
	if err != nil {
		w.abandoned.Store(true)
		if w.parker.TryConsume() {
			// Lost the race against a concurrent handoff: a permit was
			// already delivered to this waiter's parker before it gave
			// up. Forward it on rather than let it vanish with us.
			s.handoff()
		}
		return err
	}
	return nil
}

// TryAcquire blocks until a permit is available, clock says timeout has
// elapsed, or Cancel is called — whichever comes first. A semaphore already
// cancelled when TryAcquire is called returns false immediately.
func (s *semaphoreCore) TryAcquire(clock clockz.Clock, timeout time.Duration) bool {
	if s.cancelled.Load() {
		return false
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	for {
		cur := s.permits.Load()
		if cur > 0 && s.permits.CompareAndSwap(cur, cur-1) {
			return true
		}
		if cur <= 0 {
			break
		}
	}
	w := &waiter{parker: NewParker()}
	s.waiting.Add(1)
	s.waiters.Enqueue(w)
	woken := w.parker.ParkTimeout(clock, timeout)
	s.waiting.Add(-1)
	if woken {
		return true
	}
	w.abandoned.Store(true)
	if w.parker.TryConsume() {
		// Same race as Acquire: a permit landed on us right as we timed
		// out. Hand it on instead of dropping it.
		s.handoff()
	}
	return false
}

// WaitingCount reports how many callers are currently blocked in Acquire
// or TryAcquire, for the debug endpoint and metricz gauges.
func (s *semaphoreCore) WaitingCount() int64 { return s.waiting.Load() }

// Cancelled reports whether Cancel has been called.
func (s *semaphoreCore) Cancelled() bool { return s.cancelled.Load() }

// Cancel marks the semaphore cancelled — a terminal state — and wakes
// every currently queued waiter as if it had been handed a permit, so
// nobody is left blocked in Acquire/TryAcquire forever. Once cancelled, a
// semaphore never grants a real permit again: new Acquire/TryAcquire calls
// return immediately and Release fails.
func (s *semaphoreCore) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	for {
		w, ok := s.waiters.Dequeue()
		if !ok {
			return
		}
		if w.abandoned.Load() {
			continue
		}
		w.parker.Unpark()
	}
}

// BooleanSemaphore is a binary (mutual-exclusion) semaphore.
type BooleanSemaphore struct{ *semaphoreCore }

// NewBooleanSemaphore returns a semaphore initially available (1 permit) if
// available is true, else locked (0 permits).
func NewBooleanSemaphore(name string, available bool) *BooleanSemaphore {
	initial := int64(0)
	if available {
		initial = 1
	}
	s := &BooleanSemaphore{semaphoreCore: newSemaphoreCore(initial)}
	s.SetName(name)
	return s
}

// CountingSemaphore allows up to n concurrent holders.
type CountingSemaphore struct{ *semaphoreCore }

// NewCountingSemaphore returns a semaphore with n initial permits.
func NewCountingSemaphore(name string, n int64) *CountingSemaphore {
	s := &CountingSemaphore{semaphoreCore: newSemaphoreCore(n)}
	s.SetName(name)
	return s
}
