// Package cpo is a coordination kernel: channels, process combinators, and
// the synchronisation primitives channels are built from.
//
// A Process is a function of one argument, a Handle, that runs as a
// goroutine. Processes communicate exclusively through Channels — there is
// no shared mutable state between processes beyond what a Channel or
// Barrier makes explicit. Par and Ordered compose processes; Repeat and
// Attempt build retry/fallback behaviour out of them.
package cpo
