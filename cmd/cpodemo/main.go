// Command cpodemo runs small worked examples of the cpo coordination
// primitives, organized as cobra subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "cpodemo",
		Short: "Worked examples of the cpo coordination primitives",
	}
	root.AddCommand(incCmd())
	root.AddCommand(pipelineCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
