package cpo

import (
	"context"
	"sync/atomic"
)

// N2NBuf is a capacity-bounded FIFO channel: unlike Channel, Write does not
// block waiting for a matching Read — it only blocks when the buffer is
// full. Built on two CountingSemaphores guarding a LockFreeQueue, the
// classic bounded-buffer construction (see e.g. "The Little Book of
// Semaphores"), reusing this module's own semaphoreCore/LockFreeQueue
// rather than introducing a third synchronisation style.
type N2NBuf[T any] struct {
	Named
	capacity int64
	q        *LockFreeQueue[T]
	space    *semaphoreCore // permits = slots currently free
	items    *semaphoreCore // permits = items currently queued

	writerRefs atomic.Int64 // registered writers not yet CloseOut
	readerRefs atomic.Int64 // registered readers not yet CloseIn
	outClosed  atomic.Bool

	closed      atomic.Bool
	closeCtx    context.Context
	closeCancel context.CancelFunc

	reads, writes AtomicCounter
}

// NewN2NBuf returns a buffered channel of the given capacity, with one
// registered writer and one registered reader. capacity must be positive.
// Use AddWriter/AddReader before sharing a side across more than one
// concurrent goroutine, so CloseOut/CloseIn can tell when the last one is
// done.
func NewN2NBuf[T any](name string, capacity int64) *N2NBuf[T] {
	b := &N2NBuf[T]{
		capacity: capacity,
		q:        NewLockFreeQueue[T](),
		space:    newSemaphoreCore(capacity),
		items:    newSemaphoreCore(0),
	}
	b.writerRefs.Store(1)
	b.readerRefs.Store(1)
	b.SetName(name)
	b.closeCtx, b.closeCancel = context.WithCancel(context.Background())
	return b
}

// AddWriter registers n additional writers sharing the write side, so
// CloseOut only closes output once every one of them (including the one
// the constructor already counted) has called it.
func (b *N2NBuf[T]) AddWriter(n int64) { b.writerRefs.Add(n) }

// AddReader is AddWriter's reader-side counterpart.
func (b *N2NBuf[T]) AddReader(n int64) { b.readerRefs.Add(n) }

// Write enqueues value, blocking only if the buffer is at capacity.
func (b *N2NBuf[T]) Write(ctx context.Context, value T) error {
	if b.outClosed.Load() {
		return NewClosed(b.Name())
	}
	ctx2, cancel := raceContext(ctx, b.closeCtx)
	defer cancel()
	if err := b.space.Acquire(ctx2); err != nil {
		if b.closed.Load() {
			return NewClosed(b.Name())
		}
		return err
	}
	if b.closed.Load() || b.outClosed.Load() {
		b.space.Release()
		return NewClosed(b.Name())
	}
	b.q.Enqueue(value)
	b.items.Release()
	b.writes.Next()
	return nil
}

// Read dequeues the oldest value, blocking only if the buffer is empty.
func (b *N2NBuf[T]) Read(ctx context.Context) (T, error) {
	var zero T
	ctx2, cancel := raceContext(ctx, b.closeCtx)
	defer cancel()
	if err := b.items.Acquire(ctx2); err != nil {
		// Closed with nothing left queued is treated as a full close.
		if b.closed.Load() {
			return zero, NewClosed(b.Name())
		}
		return zero, err
	}
	v, ok := b.q.Dequeue()
	if !ok {
		return zero, NewClosed(b.Name())
	}
	b.space.Release()
	b.reads.Next()
	if b.outClosed.Load() && b.q.Len() == 0 {
		// The last registered writer closed out while this value was
		// still queued; now that it's drained, there's nothing left for
		// any future Read to wait for.
		_ = b.Close()
	}
	return v, nil
}

// Close marks the buffer fully closed regardless of registered
// writer/reader counts. Pending Writes unblock with Closed; pending Reads
// drain whatever is already queued first, then also return Closed once
// the buffer empties. Close is idempotent.
func (b *N2NBuf[T]) Close() error {
	b.outClosed.Store(true)
	if b.closed.CompareAndSwap(false, true) {
		b.closeCancel()
	}
	return nil
}

// CloseOut decrements the writer count and, once it reaches zero, closes
// the output side: no further Write succeeds. If the buffer is empty at
// that point there is nothing left to drain, so the whole channel closes
// immediately; otherwise pending Reads keep draining the queue and the
// channel fully closes once the last item is taken.
func (b *N2NBuf[T]) CloseOut() error {
	if b.writerRefs.Add(-1) > 0 {
		return nil
	}
	b.outClosed.Store(true)
	if b.q.Len() == 0 {
		return b.Close()
	}
	return nil
}

// CloseIn decrements the reader count and, once it reaches zero, fully
// closes the channel: with no reader left, anything still buffered can
// never be delivered, so it is discarded rather than kept around.
func (b *N2NBuf[T]) CloseIn() error {
	if b.readerRefs.Add(-1) > 0 {
		return nil
	}
	for {
		if _, ok := b.q.Dequeue(); !ok {
			break
		}
	}
	return b.Close()
}

// Closed reports whether Close has been called.
func (b *N2NBuf[T]) Closed() bool { return b.closed.Load() }

// ReadState reports PortReady if an item is already queued, PortClosed if
// closed, PortUnknown otherwise.
func (b *N2NBuf[T]) ReadState() PortState {
	if b.q.Len() > 0 {
		return PortReady
	}
	if b.closed.Load() {
		return PortClosed
	}
	return PortUnknown
}

// WriteState reports PortClosed once the output side is closed (even if
// Reads are still draining the buffer), PortReady if there is free
// capacity, PortUnknown otherwise.
func (b *N2NBuf[T]) WriteState() PortState {
	if b.closed.Load() || b.outClosed.Load() {
		return PortClosed
	}
	if b.q.Len() < b.capacity {
		return PortReady
	}
	return PortUnknown
}

// Len returns the number of items currently queued.
func (b *N2NBuf[T]) Len() int64 { return b.q.Len() }

// Capacity returns the buffer's fixed capacity.
func (b *N2NBuf[T]) Capacity() int64 { return b.capacity }

// Reads returns the number of completed Read calls.
func (b *N2NBuf[T]) Reads() int64 { return b.reads.Value() }

// Writes returns the number of completed Write calls.
func (b *N2NBuf[T]) Writes() int64 { return b.writes.Value() }
