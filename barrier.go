package cpo

import (
	"context"
	"sync"
)

// Barrier is a cyclic rendezvous point for a fixed number of parties,
// built from a pair of turnstile semaphoreCores the way the classic
// two-phase barrier construction does — grounded on the same
// fast-path-CAS-then-park semaphoreCore this module already builds for
// BooleanSemaphore/CountingSemaphore, rather than introducing a second
// primitive.
type Barrier struct {
	Named
	parties    int
	count      *AtomicCell[int64]
	turnstile1 *semaphoreCore // closed (0) until the last party arrives
	turnstile2 *semaphoreCore // open (1) between rounds; the last phase-1 arrival closes it and the last party out of phase 1 reopens it
}

// NewBarrier returns a barrier for n parties.
func NewBarrier(name string, n int) *Barrier {
	b := &Barrier{
		parties:    n,
		count:      NewAtomicCell(int64(n)),
		turnstile1: newSemaphoreCore(0),
		turnstile2: newSemaphoreCore(1),
	}
	b.SetName(name)
	return b
}

// Await blocks until all parties have called Await for the current round,
// then returns, leaving the barrier ready for the next round.
func (b *Barrier) Await(ctx context.Context) error {
	if err := b.phase(ctx, b.turnstile1, b.turnstile2, -1); err != nil {
		return err
	}
	return b.phase(ctx, b.turnstile2, b.turnstile1, 1)
}

// phase implements one half of the two-phase barrier: arrive (adjusting
// count by delta), and if this call was the last arrival this phase, open
// `open` for everyone (having first closed `close` for the next phase).
func (b *Barrier) phase(ctx context.Context, open, close *semaphoreCore, delta int64) error {
	var last bool
	for {
		cur := b.count.Get()
		next := cur + delta
		if b.count.CompareAndSet(cur, next) {
			if delta < 0 {
				last = next == 0
			} else {
				last = next == int64(b.parties)
			}
			break
		}
	}
	if last {
		if err := close.Acquire(ctx); err != nil {
			return err
		}
		open.Release()
	}
	if err := open.Acquire(ctx); err != nil {
		return err
	}
	open.Release()
	return nil
}

// Parties returns the number of parties this barrier was built for.
func (b *Barrier) Parties() int { return b.parties }

// CombiningBarrier is a Barrier that also reduces one value per party
// through an associative combine function, letting a round of processes
// agree on a single folded result (e.g. all-true/any-true) without a
// separate channel.
type CombiningBarrier[T any] struct {
	*Barrier
	combine  func(a, b T) T
	identity T

	mu     sync.Mutex
	acc    T
	result T
}

// NewCombiningBarrier returns a CombiningBarrier for n parties, combining
// contributed values with combine starting from identity each round.
// identity must be a true identity element of combine (combine(identity, x)
// == x) since it seeds the accumulator at the start of every round.
func NewCombiningBarrier[T any](name string, n int, identity T, combine func(a, b T) T) *CombiningBarrier[T] {
	cb := &CombiningBarrier[T]{
		Barrier:  NewBarrier(name, n),
		combine:  combine,
		identity: identity,
		acc:      identity,
	}
	return cb
}

// Combine contributes value to the current round and blocks until every
// party has contributed, returning the fold of all contributed values for
// that round.
func (cb *CombiningBarrier[T]) Combine(ctx context.Context, value T) (T, error) {
	cb.mu.Lock()
	cb.acc = cb.combine(cb.acc, value)
	cb.mu.Unlock()

	if err := cb.phaseWithFold(ctx, cb.turnstile1, cb.turnstile2, -1); err != nil {
		var zero T
		return zero, err
	}
	r := cb.readResult()
	if err := cb.phase(ctx, cb.turnstile2, cb.turnstile1, 1); err != nil {
		return r, err
	}
	return r, nil
}

func (cb *CombiningBarrier[T]) readResult() T {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.result
}

// phaseWithFold is phase 1 of Await, extended to snapshot the fold into
// result and reset acc before opening the turnstile for the round.
func (cb *CombiningBarrier[T]) phaseWithFold(ctx context.Context, open, close *semaphoreCore, delta int64) error {
	var last bool
	for {
		cur := cb.count.Get()
		next := cur + delta
		if cb.count.CompareAndSet(cur, next) {
			last = next == 0
			break
		}
	}
	if last {
		if err := close.Acquire(ctx); err != nil {
			return err
		}
		cb.mu.Lock()
		cb.result = cb.acc
		cb.acc = cb.identity
		cb.mu.Unlock()
		open.Release()
	}
	if err := open.Acquire(ctx); err != nil {
		return err
	}
	open.Release()
	return nil
}

// NewOrBarrier returns a CombiningBarrier[bool] whose round result is the
// logical OR of every party's contribution — useful for "did anyone see
// termination" rounds.
func NewOrBarrier(name string, n int) *CombiningBarrier[bool] {
	return NewCombiningBarrier(name, n, false, func(a, b bool) bool { return a || b })
}

// NewAndBarrier returns a CombiningBarrier[bool] whose round result is the
// logical AND of every party's contribution — useful for "did everyone
// agree to proceed" rounds.
func NewAndBarrier(name string, n int) *CombiningBarrier[bool] {
	return NewCombiningBarrier(name, n, true, func(a, b bool) bool { return a && b })
}
