package cpo

import (
	"errors"
	"fmt"
	"strings"
)

// Stopped signals cooperative termination of a process or a channel side.
// It is routine control flow, not a failure — Repeat and Attempt treat it
// as the normal way a loop or a body ends.
type Stopped struct {
	Reason string
}

func (s *Stopped) Error() string {
	if s.Reason == "" {
		return "stopped"
	}
	return "stopped: " + s.Reason
}

// NewStopped builds a Stopped with the given reason.
func NewStopped(reason string) *Stopped { return &Stopped{Reason: reason} }

// Closed is a Stopped raised specifically because a channel or a
// synchronisation primitive was closed out from under a waiter.
type Closed struct {
	Stopped
	Name string
}

func (c *Closed) Error() string {
	if c.Name == "" {
		return "closed"
	}
	return fmt.Sprintf("%s: closed", c.Name)
}

// Unwrap lets errors.Is/As match Closed against Stopped.
func (c *Closed) Unwrap() error { return &c.Stopped }

// NewClosed builds a Closed for the named object.
func NewClosed(name string) *Closed {
	return &Closed{Stopped: Stopped{Reason: "closed"}, Name: name}
}

// IsStopped reports whether err is, or wraps, a Stopped (including Closed).
func IsStopped(err error) bool {
	var s *Stopped
	return errors.As(err, &s)
}

// IsClosed reports whether err is, or wraps, a Closed.
func IsClosed(err error) bool {
	var c *Closed
	return errors.As(err, &c)
}

// ParException aggregates the exceptions raised by the branches of a Par,
// preserving branch order. A Par whose branches all succeed never
// constructs one.
type ParException struct {
	Errs []error
}

func (p *ParException) Error() string {
	parts := make([]string, len(p.Errs))
	for i, e := range p.Errs {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("par: %d branches failed: %s", len(p.Errs), strings.Join(parts, "; "))
}

// Unwrap exposes the individual branch errors to errors.Is/As.
func (p *ParException) Unwrap() []error { return p.Errs }

// NewParException builds an error from the non-nil errors in errs, in
// order: nil if there are none, the bare error if there is exactly one,
// else a *ParException wrapping all of them.
func NewParException(errs []error) error {
	var kept []error
	for _, e := range errs {
		if e != nil {
			kept = append(kept, e)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return &ParException{Errs: kept}
	}
}

// SemaphoreCancelled is a Stopped raised by Acquire on a semaphore that has
// been cancelled: cancellation is terminal, so every Acquire made after it
// reports this instead of blocking or granting a permit. TryAcquire reports
// the same case by returning false.
type SemaphoreCancelled struct {
	Stopped
	Name string
}

func (c *SemaphoreCancelled) Error() string {
	return fmt.Sprintf("%s: semaphore cancelled", c.Name)
}

// Unwrap lets errors.Is/As match SemaphoreCancelled against Stopped.
func (c *SemaphoreCancelled) Unwrap() error { return &c.Stopped }

// NewSemaphoreCancelled builds a SemaphoreCancelled for the named semaphore.
func NewSemaphoreCancelled(name string) *SemaphoreCancelled {
	return &SemaphoreCancelled{Stopped: Stopped{Reason: "cancelled"}, Name: name}
}

// ErrSemaphoreReleasedAfterCancel is returned by Release once a semaphore
// has been cancelled: the cancelled state is terminal, so it no longer
// accepts permits back.
var ErrSemaphoreReleasedAfterCancel = errors.New("cpo: release on a cancelled semaphore")

// ErrTimeout is a sentinel for a wait that hit its deadline, to be checked
// with errors.Is. The timed operations in this package (TryAcquire,
// TryLockFor) report a timeout through their return values and do not
// return it.
var ErrTimeout = errors.New("cpo: timed out")

// Crashed is raised by Repeat when its configured CrashProbability fires,
// simulating an unexpected process death for fault-injection tests. It is
// never raised by production code paths.
type Crashed struct {
	Name string
}

func (c *Crashed) Error() string { return fmt.Sprintf("%s: injected crash", c.Name) }

// ErrOvertaken is raised when a second reader or writer touches a port that
// is only meant to ever have one on that side (the single side of a
// OneOne/ManyOne/OneMany channel, or a Flag whose waiter slot is already
// occupied). It indicates a usage bug in
// the caller, not a runtime condition to recover from.
var ErrOvertaken = errors.New("cpo: port already has a waiter on this side")
