package cpo

import (
	"context"
	"strconv"
	"sync"

	cpruntime "github.com/gocpo/cpo/runtime"
)

// Par runs every process in procs concurrently, each under its own Handle
// derived from ctx, and blocks until all of them have returned. If Stop is
// called on ctx (or ctx is otherwise cancelled), every branch's context is
// cancelled too, since each branch Handle is derived from the same parent.
//
// The reported outcome follows four rules, applied in order:
//   - all branches succeed ⇒ success (nil)
//   - no generic (non-Stopped) error, but at least one Stopped ⇒ fails with
//     that Stopped
//   - exactly one generic error, the rest success/Stopped ⇒ fails with that
//     bare error
//   - two or more generic errors ⇒ fails with a *ParException listing them,
//     in branch order
func Par(ctx context.Context, opts []HandleOption, procs ...Process) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt := handleOptionsRuntime(opts)
	rt = cpruntime.Fallback(rt)
	parCtx, span := rt.Tracer.StartSpan(ctx, cpruntime.SpanPar)

	handles := make([]*Handle, len(procs))
	for i, p := range procs {
		name := fmtParBranch(i)
		handles[i] = Fork(parCtx, name, p, opts...)
	}

	errs := make([]error, len(procs))
	var wg sync.WaitGroup
	wg.Add(len(handles))
	for i, h := range handles {
		i, h := i, h
		go func() {
			defer wg.Done()
			errs[i] = h.Join()
		}()
	}
	wg.Wait()
	span.Finish()

	var generic, stopped []error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if IsStopped(err) {
			stopped = append(stopped, err)
		} else {
			generic = append(generic, err)
		}
	}
	if len(generic) > 0 {
		return NewParException(generic)
	}
	if len(stopped) > 0 {
		return stopped[0]
	}
	return nil
}

func fmtParBranch(i int) string {
	return "par-" + strconv.Itoa(i)
}

// handleOptionsRuntime extracts a *Runtime from opts if WithRuntime was
// passed, by applying the options to a throwaway Handle — avoids needing a
// second configuration surface just for Par/Ordered.
func handleOptionsRuntime(opts []HandleOption) *cpruntime.Runtime {
	h := &Handle{}
	for _, o := range opts {
		o(h)
	}
	return h.rt
}
