package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/heapkit/heapkit/heap"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <image>",
		Short: "Validate an image header and report basic metadata",
		Long: `The info command validates a heap image file and displays basic
metadata including region size, block counts, and free space.

Example:
  heapctl info app.heap
  heapctl info app.heap --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
	return cmd
}

// imageInfo summarizes one heap image.
type imageInfo struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	DataSize   uint32 `json:"data_size"`
	Head       uint32 `json:"head"`
	Tail       uint32 `json:"tail"`
	Blocks     int    `json:"blocks"`
	FreeBlocks int    `json:"free_blocks"`
	UsedBytes  int64  `json:"used_bytes"`
	FreeBytes  int64  `json:"free_bytes"`
}

func collectInfo(path string) (imageInfo, error) {
	h, err := heap.Open(path)
	if err != nil {
		return imageInfo{}, err
	}
	defer h.Close()

	info := imageInfo{
		Path:     path,
		Size:     h.Size(),
		DataSize: h.DataSize(),
		Head:     h.Head(),
		Tail:     h.Tail(),
	}

	it, err := h.Blocks()
	if err != nil {
		return imageInfo{}, err
	}
	for {
		b, nextErr := it.Next()
		if nextErr != nil {
			if errors.Is(nextErr, io.EOF) {
				break
			}
			return imageInfo{}, nextErr
		}
		info.Blocks++
		if b.IsFree() {
			info.FreeBlocks++
			info.FreeBytes += int64(b.Size())
		} else {
			info.UsedBytes += int64(b.Size())
		}
	}
	return info, nil
}

func runInfo(args []string) error {
	path := args[0]

	printVerbose("Opening heap image: %s\n", path)

	info, err := collectInfo(path)
	if err != nil {
		return fmt.Errorf("failed to get image info: %w", err)
	}

	if jsonOut {
		return printJSON(info)
	}

	printInfo("\nHeap Image:\n")
	printInfo("  File: %s\n", info.Path)
	printInfo("  Size: %d bytes (%d data)\n", info.Size, info.DataSize)
	printInfo("  Head: 0x%X, Tail: 0x%X\n", info.Head, info.Tail)
	printInfo("  Blocks: %d (%d free)\n", info.Blocks, info.FreeBlocks)
	printInfo("  Payload bytes: %d in use, %d free\n", info.UsedBytes, info.FreeBytes)
	return nil
}
