package main

import (
	"fmt"

	"github.com/heapkit/heapkit/heap"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <image>",
		Short: "Create a new, empty heap image",
		Long: `The create command writes a fresh heap image containing only the
base header: zero blocks, head and tail empty.

Example:
  heapctl create app.heap`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args)
		},
	}
	return cmd
}

func runCreate(args []string) error {
	path := args[0]

	printVerbose("Creating heap image: %s\n", path)

	h, err := heap.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	defer h.Close()

	printInfo("Created %s (%d bytes)\n", path, h.Size())
	return nil
}
