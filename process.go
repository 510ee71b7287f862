package cpo

import (
	"context"
	"fmt"

	cpruntime "github.com/gocpo/cpo/runtime"
	"github.com/zoobzio/tracez"
)

// Process is the unit of execution: a function of the Handle it was forked
// with. It returns nil on success, a *Stopped (or *Closed) on cooperative
// termination, or any other error on failure, distinguishing "terminated
// by throwing" from routine shutdown.
type Process func(h *Handle) error

// Handle is a running process's handle to itself and, from the forking
// side, a handle to join it. It is the sole channel through which a
// process learns it should stop (via Context) — there is no separate
// Stop(otherProcess) API, since Go offers no way to forcibly interrupt
// another goroutine and this module doesn't pretend otherwise.
type Handle struct {
	Named
	ctx      context.Context
	cancel   context.CancelFunc
	detached bool
	stack    int // hint only; Go doesn't let callers size a goroutine stack
	rt       *cpruntime.Runtime

	done chan struct{}
	err  error
}

// HandleOption configures a Handle at Fork time.
type HandleOption func(*Handle)

// Detached marks the process as a daemon, which Handle.Detached reports.
// The flag changes nothing else: Go has no "exit process without waiting
// for daemons" semantics to opt into.
func Detached() HandleOption { return func(h *Handle) { h.detached = true } }

// StackSize records a stack-size hint on the Handle. Nothing reads it: Go
// sizes goroutine stacks itself and gives callers no lever over it.
func StackSize(bytes int) HandleOption { return func(h *Handle) { h.stack = bytes } }

// WithRuntime attaches an explicit Runtime instead of the process-wide
// default.
func WithRuntime(rt *cpruntime.Runtime) HandleOption { return func(h *Handle) { h.rt = rt } }

// Context returns the process's context. It is cancelled when Stop is
// called on this Handle, or when the parent Par/Ordered composition is
// torn down.
func (h *Handle) Context() context.Context { return h.ctx }

// Stop cancels the process's context. The process body is responsible for
// noticing (via ctx.Done or a blocking call that honors ctx) and returning
// a *Stopped.
func (h *Handle) Stop() { h.cancel() }

// Detached reports whether this process was forked as a daemon.
func (h *Handle) Detached() bool { return h.detached }

// Runtime returns the Runtime this process is running under.
func (h *Handle) Runtime() *cpruntime.Runtime { return h.rt }

// Join blocks until the process returns, then yields its result.
func (h *Handle) Join() error {
	<-h.done
	return h.err
}

// Done reports completion without blocking for the error value.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Fork starts body running in its own goroutine under a context derived
// from ctx, and returns immediately with a Handle to observe or join it.
func Fork(ctx context.Context, name string, body Process, opts ...HandleOption) *Handle {
	if ctx == nil {
		ctx = context.Background()
	}
	hctx, cancel := context.WithCancel(ctx)
	h := &Handle{ctx: hctx, cancel: cancel, done: make(chan struct{})}
	h.SetName(name)
	for _, opt := range opts {
		opt(h)
	}
	h.rt = cpruntime.Fallback(h.rt)
	go runProcess(h, body)
	return h
}

// Simple forks body as a standalone top-level process, under
// context.Background().
func Simple(name string, body Process, opts ...HandleOption) *Handle {
	return Fork(context.Background(), name, body, opts...)
}

// SKIP is a process that does nothing and succeeds immediately — the
// identity element for Ordered composition.
var SKIP Process = func(h *Handle) error { return nil }

func runProcess(h *Handle, body Process) {
	rt := h.rt
	rt.Hooks.Emit(h.ctx, cpruntime.HookProcessStarted, cpruntime.Event{Kind: "process.started", Name: h.Name()})
	rt.Metrics.Counter(cpruntime.MetricProcessesStarted).Inc()
	spanCtx, span := rt.Tracer.StartSpan(h.ctx, cpruntime.SpanProcess)
	span.SetTag(cpruntime.TagProcessName, h.Name())
	h.ctx = spanCtx

	defer func() {
		if r := recover(); r != nil {
			h.finish(fmt.Errorf("process %s panicked: %v", h.Name(), r), span)
		}
	}()
	h.finish(body(h), span)
}

// finish records the process's outcome: metrics, hooks, logging, the span,
// and the Handle's own done/err state for Join.
func (h *Handle) finish(err error, span tracez.Span) {
	rt := h.rt
	h.err = err
	if err != nil && !IsStopped(err) {
		rt.Metrics.Counter(cpruntime.MetricProcessesFailed).Inc()
		rt.Hooks.Emit(h.ctx, cpruntime.HookProcessException, cpruntime.Event{Kind: "process.exception", Name: h.Name(), Err: err})
		rt.Logger.Error().Str("process", h.Name()).Err(err).Msg("process terminated by exception")
		span.SetTag(cpruntime.TagOutcome, "exception")
	} else {
		rt.Hooks.Emit(h.ctx, cpruntime.HookProcessStopped, cpruntime.Event{Kind: "process.stopped", Name: h.Name()})
		span.SetTag(cpruntime.TagOutcome, "stopped")
	}
	span.Finish()
	close(h.done)
}
