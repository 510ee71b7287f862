package cpo

import (
	"context"
	"strconv"

	cpruntime "github.com/gocpo/cpo/runtime"
)

// Ordered runs each process in procs to completion, one after another,
// under a single context derived from ctx, stopping at the first process
// that returns an error of any kind (a *Stopped/*Closed included) and
// returning that error. SKIP is its identity element: Ordered(ctx,
// opts, SKIP, p) behaves the same as Ordered(ctx, opts, p).
func Ordered(ctx context.Context, opts []HandleOption, procs ...Process) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt := handleOptionsRuntime(opts)
	rt = cpruntime.Fallback(rt)
	orderedCtx, span := rt.Tracer.StartSpan(ctx, cpruntime.SpanOrdered)
	defer span.Finish()

	for i, p := range procs {
		name := "ordered-" + strconv.Itoa(i)
		h := Fork(orderedCtx, name, p, opts...)
		if err := h.Join(); err != nil {
			return err
		}
	}
	return nil
}
