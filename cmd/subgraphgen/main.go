// subgraphgen turns process-stop events into deduplicated, compressed graph
// payloads.
//
// Usage:
//
//	subgraphgen [produce] [config]
//	subgraphgen inspect <payload-file>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	produce := newProduceCmd()
	root := &cobra.Command{
		Use:   "subgraphgen [config]",
		Short: "Merge process-stop events into compressed subgraph payloads",
		Args:  cobra.MaximumNArgs(1),
		// Bare invocation keeps the old behavior: the first arg is a config path.
		RunE: produce.RunE,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		Version:      version,
	}
	root.AddCommand(produce)
	root.AddCommand(newInspectCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
