package cpo

import "fmt"

// DebugState implements registry.Debuggable for rendezvous-based channels
// (OneOne/ManyOne/OneMany/ManyMany).
func (rc *rendezvousCore[T]) DebugState() string {
	state := "open"
	if rc.Closed() {
		state = "closed"
	}
	return fmt.Sprintf("CHAN %s: %s reads=%d writes=%d", rc.Name(), state, rc.Reads(), rc.Writes())
}

// DebugState implements registry.Debuggable for N2NBuf.
func (b *N2NBuf[T]) DebugState() string {
	state := "open"
	if b.Closed() {
		state = "closed"
	}
	return fmt.Sprintf("CHANBUF %s: %s len=%d/%d reads=%d writes=%d", b.Name(), state, b.Len(), b.Capacity(), b.Reads(), b.Writes())
}

// DebugState implements registry.Debuggable for semaphores.
func (s *semaphoreCore) DebugState() string {
	cancelled := ""
	if s.Cancelled() {
		cancelled = " [cancelled]"
	}
	return fmt.Sprintf("SEM %s: permits=%d waiting=%d%s", s.Name(), s.permits.Load(), s.WaitingCount(), cancelled)
}

// DebugState implements registry.Debuggable for Barrier.
func (b *Barrier) DebugState() string {
	return fmt.Sprintf("BARRIER %s: parties=%d remaining=%d", b.Name(), b.parties, b.count.Get())
}

// DebugState implements registry.Debuggable for SimpleLock.
func (l *SimpleLock) DebugState() string {
	locked := l.TryLock()
	if locked {
		l.Unlock()
		return fmt.Sprintf("LOCK %s: free", l.Name())
	}
	return fmt.Sprintf("LOCK %s: held", l.Name())
}
