package main

import (
	"fmt"
	"os"

	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/heap/printer"
	"github.com/spf13/cobra"
)

var (
	dumpPayload      bool
	dumpPayloadBytes int
)

func init() {
	cmd := newDumpCmd()
	cmd.Flags().BoolVar(&dumpPayload, "payload", false, "Include a hex preview of each payload")
	cmd.Flags().IntVar(&dumpPayloadBytes, "payload-bytes", 16, "Payload preview length in bytes")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <image>",
		Short: "Human-readable dump of the block list",
		Long: `The dump command prints the head/tail pointers and every block's
address, size, free flag, and next link, in list order.

Example:
  heapctl dump app.heap
  heapctl dump app.heap --payload
  heapctl dump app.heap --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}
	return cmd
}

func runDump(args []string) error {
	path := args[0]

	printVerbose("Opening heap image: %s\n", path)

	h, err := heap.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer h.Close()

	opts := printer.DefaultOptions()
	opts.ShowPayload = dumpPayload
	opts.MaxPayloadBytes = dumpPayloadBytes
	if jsonOut {
		opts.Format = printer.FormatJSON
	}

	return printer.New(os.Stdout, opts).Print(h)
}
