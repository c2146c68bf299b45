package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subgraphgen/internal/serialization"
)

func newInspectCmd() *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "inspect <payload-file>",
		Short: "Decode a payload file and print its subgraphs as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			subgraphs, err := serialization.Decode(data)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(subgraphs)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "Print one JSON line instead of indented output")
	return cmd
}
