package cpo

import (
	"context"
	"math/rand"
)

// Faulty wraps a Port and, with a fixed probability on each Write, silently
// drops the value instead of forwarding it to the wrapped port — it
// reports success either way, so the writer can't tell loss from delivery.
// Used to model a lossy link. Wrapping the channel itself means any
// process built on a plain Port can be put under fault injection without
// changing the process body. No other semantic change: Read, Close, and
// state queries all forward unconditionally.
type Faulty[T any] struct {
	inner    Port[T]
	probLoss float64
	rng      *rand.Rand
}

// NewFaulty wraps inner so that each Write independently has probability
// probLoss (0..1) of being silently dropped instead of forwarded to inner.
// seed makes the loss sequence reproducible.
func NewFaulty[T any](inner Port[T], probLoss float64, seed int64) *Faulty[T] {
	return &Faulty[T]{inner: inner, probLoss: probLoss, rng: rand.New(rand.NewSource(seed))}
}

func (f *Faulty[T]) shouldDrop() bool {
	return f.probLoss > 0 && f.rng.Float64() < f.probLoss
}

// Write forwards value to the wrapped port, unless loss is injected, in
// which case it silently discards value and returns nil as if it had been
// delivered.
func (f *Faulty[T]) Write(ctx context.Context, value T) error {
	if f.shouldDrop() {
		return nil
	}
	return f.inner.Write(ctx, value)
}

// Read forwards to the wrapped port. Faulty only drops writes.
func (f *Faulty[T]) Read(ctx context.Context) (T, error) {
	return f.inner.Read(ctx)
}

// Close forwards to the wrapped port.
func (f *Faulty[T]) Close() error { return f.inner.Close() }

// Closed forwards to the wrapped port.
func (f *Faulty[T]) Closed() bool { return f.inner.Closed() }

// ReadState forwards to the wrapped port.
func (f *Faulty[T]) ReadState() PortState { return f.inner.ReadState() }

// WriteState forwards to the wrapped port.
func (f *Faulty[T]) WriteState() PortState { return f.inner.WriteState() }
