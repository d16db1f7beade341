package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newStatsCmd())
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <image>",
		Short: "Show block-list statistics",
		Long: `The stats command reports block counts, payload byte totals, and a
simple fragmentation figure (free payload bytes stranded before the
region boundary; only tail blocks can ever be returned).

Example:
  heapctl stats app.heap
  heapctl stats app.heap --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatsCmd(args)
		},
	}
	return cmd
}

// imageStats extends imageInfo with derived figures.
type imageStats struct {
	imageInfo
	FragmentationPct float64 `json:"fragmentation_pct"`
}

func runStatsCmd(args []string) error {
	path := args[0]

	printVerbose("Opening heap image: %s\n", path)

	info, err := collectInfo(path)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	stats := imageStats{imageInfo: info}
	if total := info.UsedBytes + info.FreeBytes; total > 0 {
		stats.FragmentationPct = float64(info.FreeBytes) / float64(total) * 100
	}

	if jsonOut {
		return printJSON(stats)
	}

	printInfo("\nHeap Statistics:\n")
	printInfo("  File: %s\n", stats.Path)
	printInfo("  Region: %d bytes (%d data)\n", stats.Size, stats.DataSize)
	printInfo("  Blocks: %d total, %d free, %d in use\n",
		stats.Blocks, stats.FreeBlocks, stats.Blocks-stats.FreeBlocks)
	printInfo("  Payload: %d bytes in use, %d bytes free\n", stats.UsedBytes, stats.FreeBytes)
	printInfo("  Fragmentation: %.1f%%\n", stats.FragmentationPct)
	return nil
}
