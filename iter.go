package cpo

// IterToChannel builds a Process that writes every element of items to ch,
// in order, then closes ch: a convenience for turning a finite sequence
// into a producer process without hand-writing a loop per call site.
func IterToChannel[T any](items []T, ch Port[T]) Process {
	return func(h *Handle) error {
		for _, v := range items {
			if err := ch.Write(h.Context(), v); err != nil {
				return err
			}
		}
		return ch.Close()
	}
}

// GenToChannel is IterToChannel's unbounded-source counterpart: next
// returns a value and true while there's more to send, or the zero value
// and false once the source is exhausted. Useful for wiring an infinite
// generator (a clock tick, a counter) into a channel.
func GenToChannel[T any](next func() (T, bool), ch Port[T]) Process {
	return func(h *Handle) error {
		for {
			select {
			case <-h.Context().Done():
				return NewStopped("cancelled")
			default:
			}
			v, ok := next()
			if !ok {
				return ch.Close()
			}
			if err := ch.Write(h.Context(), v); err != nil {
				return err
			}
		}
	}
}
