package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gocpo/cpo"
)

// incCmd demonstrates a shared counter built on a CombiningBarrier: in
// each of a fixed number of rounds every worker contributes 1, and the
// barrier folds the round's contributions into that round's total (the
// number of workers), so the count needs no explicit lock. The total
// printed is the final round's.
func incCmd() *cobra.Command {
	var workers, rounds int
	cmd := &cobra.Command{
		Use:   "inc",
		Short: "n workers incrementing a shared total through a CombiningBarrier",
		RunE: func(c *cobra.Command, args []string) error {
			barrier := cpo.NewCombiningBarrier("inc-barrier", workers, 0, func(a, b int) int { return a + b })
			ctx := context.Background()

			total := 0
			procs := make([]cpo.Process, workers)
			for w := 0; w < workers; w++ {
				w := w
				procs[w] = func(h *cpo.Handle) error {
					for r := 0; r < rounds; r++ {
						sum, err := barrier.Combine(h.Context(), 1)
						if err != nil {
							return err
						}
						if r == rounds-1 && w == 0 {
							total = sum
						}
					}
					return nil
				}
			}
			if err := cpo.Par(ctx, nil, procs...); err != nil {
				return err
			}
			fmt.Printf("final round total: %d (expected %d)\n", total, workers)
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "number of concurrent workers")
	cmd.Flags().IntVar(&rounds, "rounds", 3, "number of barrier rounds")
	return cmd
}
