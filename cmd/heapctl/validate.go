package main

import (
	"fmt"

	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/heap/alloc"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newValidateCmd())
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <image>",
		Short: "Validate image structure and block-list invariants",
		Long: `The validate command checks a heap image for structural integrity:
header signature, version, and checksum, then every block-list invariant
(bounds, contiguity, link order, tail at the region boundary).

Example:
  heapctl validate app.heap`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args)
		},
	}
	return cmd
}

func runValidate(args []string) error {
	path := args[0]

	printVerbose("Validating heap image: %s\n", path)

	h, err := heap.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer h.Close()

	if err := alloc.Validate(h); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	printInfo("OK: %s is structurally valid\n", path)
	return nil
}
