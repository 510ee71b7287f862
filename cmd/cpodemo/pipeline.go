package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gocpo/cpo"
)

// pipelineCmd wires a small producer/filter/consumer chain: a source
// process writes integers into a buffered channel, a filter process reads
// them and forwards only the even ones, and a sink reads and prints.
func pipelineCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "source -> even-filter -> sink over N2NBuf channels",
		RunE: func(c *cobra.Command, args []string) error {
			ctx := context.Background()
			nums := cpo.NewN2NBuf[int]("nums", 8)
			evens := cpo.NewN2NBuf[int]("evens", 8)

			source := func(h *cpo.Handle) error {
				for i := 1; i <= n; i++ {
					if err := nums.Write(h.Context(), i); err != nil {
						return err
					}
				}
				return nums.Close()
			}
			filter := func(h *cpo.Handle) error {
				for {
					v, err := nums.Read(h.Context())
					if err != nil {
						if cpo.IsClosed(err) {
							return evens.Close()
						}
						return err
					}
					if v%2 == 0 {
						if err := evens.Write(h.Context(), v); err != nil {
							return err
						}
					}
				}
			}
			sink := func(h *cpo.Handle) error {
				for {
					v, err := evens.Read(h.Context())
					if err != nil {
						if cpo.IsClosed(err) {
							return nil
						}
						return err
					}
					fmt.Println(v)
				}
			}
			return cpo.Par(ctx, nil, source, filter, sink)
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "how many integers the source produces")
	return cmd
}
