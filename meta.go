package cpo

import (
	"context"
	"math/rand"
	"strconv"
)

// Proc builds a Process from a plain function that takes no Handle, for
// bodies that don't need to look at their own context.
func Proc(fn func() error) Process {
	return func(h *Handle) error { return fn() }
}

// Procs builds one Process per element of args, each running fn with that
// element, so the result can be fed straight to Par: it maps a function
// over a list of arguments to build a family of parallel branches.
func Procs[A any](fn func(h *Handle, arg A) error, args []A) []Process {
	procs := make([]Process, len(args))
	for i, a := range args {
		a := a
		procs[i] = func(h *Handle) error { return fn(h, a) }
	}
	return procs
}

// OrderedProcs is Procs's Ordered-flavoured counterpart: same mapping,
// intended to be passed to Ordered instead of Par so the branches run one
// after another in argument order.
func OrderedProcs[A any](fn func(h *Handle, arg A) error, args []A) []Process {
	return Procs(fn, args)
}

// Attempt runs body; if body returns a *Stopped (including *Closed), it
// runs fallback instead and returns its result. Any other error from body
// propagates without running fallback.
func Attempt(body, fallback Process) Process {
	return func(h *Handle) error {
		err := body(h)
		if err == nil {
			return nil
		}
		if IsStopped(err) {
			return fallback(h)
		}
		return err
	}
}

// RepeatOptions configures Repeat.
type RepeatOptions struct {
	// Guard is re-evaluated before each iteration; Repeat stops cleanly
	// once it returns false. A nil Guard loops until Stopped/Closed or an
	// error.
	Guard func() bool
	// Finally runs once after the loop ends, regardless of outcome.
	Finally func(h *Handle)
	// CrashProbability, if greater than zero, gives each iteration an
	// independent chance of failing with a *Crashed before body runs,
	// instead of actually invoking body. Zero (the default) never
	// injects a crash. Intended for fault-injection tests that need to
	// exercise a caller's handling of an unexpected process death.
	CrashProbability float64
	// Rand supplies the randomness for CrashProbability. Nil uses a fresh
	// source seeded with 1, so the crash sequence is the same on every run.
	Rand *rand.Rand
}

// Repeat runs body repeatedly under h's context until Guard returns false,
// body returns *Stopped/*Closed (treated as clean termination, not
// propagated), ctx is cancelled, CrashProbability fires, or body returns
// another error (propagated after Finally runs).
func Repeat(body Process, opts RepeatOptions) Process {
	return func(h *Handle) error {
		result := runRepeatLoop(h, body, opts)
		if opts.Finally != nil {
			opts.Finally(h)
		}
		return result
	}
}

func runRepeatLoop(h *Handle, body Process, opts RepeatOptions) error {
	rng := opts.Rand
	if opts.CrashProbability > 0 && rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	for {
		select {
		case <-h.Context().Done():
			return nil
		default:
		}
		if opts.Guard != nil && !opts.Guard() {
			return nil
		}
		if opts.CrashProbability > 0 && rng.Float64() < opts.CrashProbability {
			return &Crashed{Name: h.Name()}
		}
		if err := body(h); err != nil {
			if IsStopped(err) {
				return nil
			}
			return err
		}
	}
}

// ForkProc forks a single Process built from a plain function, the
// composition of Proc and Fork for the common case of a body that doesn't
// need its own Handle.
func ForkProc(ctx context.Context, name string, fn func() error, opts ...HandleOption) *Handle {
	return Fork(ctx, name, Proc(fn), opts...)
}

// ForkProcs forks one process per element of args under a shared parent
// context, returning their Handles without waiting — the fire-and-collect
// counterpart to Procs+Par when the caller wants to Join selectively
// instead of aggregating through a ParException.
func ForkProcs[A any](ctx context.Context, namePrefix string, fn func(h *Handle, arg A) error, args []A, opts ...HandleOption) []*Handle {
	procs := Procs(fn, args)
	handles := make([]*Handle, len(procs))
	for i, p := range procs {
		handles[i] = Fork(ctx, namePrefix+"-"+strconv.Itoa(i), p, opts...)
	}
	return handles
}
