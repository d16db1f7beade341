// Package printer renders human-readable and JSON dumps of a heap region's
// block list.
//
// The dump is a read-only traversal and is deliberately unsynchronized: it
// takes no lock on the allocator. Callers must either hold the image
// exclusively (the heapctl tool opens its own file handle) or quiesce the
// allocator before dumping; a dump raced against live allocations may see a
// torn list.
package printer

import (
	"errors"
	"fmt"
	"io"

	"github.com/heapkit/heapkit/heap"
)

// Format specifies the output format for printing.
type Format string

const (
	// FormatText outputs human-readable text format.
	FormatText Format = "text"

	// FormatJSON outputs JSON format.
	FormatJSON Format = "json"
)

// Options controls printing behavior.
type Options struct {
	// Format specifies output format (text, json).
	// Default: FormatText
	Format Format

	// ShowPayload includes a short hex preview of each payload.
	// Default: false
	ShowPayload bool

	// MaxPayloadBytes limits how many payload bytes to preview.
	// Default: 16
	MaxPayloadBytes int
}

// DefaultOptions returns sensible defaults for printing.
func DefaultOptions() Options {
	return Options{
		Format:          FormatText,
		ShowPayload:     false,
		MaxPayloadBytes: 16,
	}
}

// Printer handles formatted output of heap structures.
type Printer struct {
	opts   Options
	writer io.Writer
}

// New creates a new Printer writing to w.
func New(w io.Writer, opts Options) *Printer {
	return &Printer{
		writer: w,
		opts:   opts,
	}
}

// Print dumps the region's state: the head/tail pointers followed by one
// line (or one JSON object) per block in list order.
func (p *Printer) Print(h *heap.Heap) error {
	switch p.opts.Format {
	case FormatJSON:
		return p.printJSON(h)
	case FormatText, "":
		return p.printText(h)
	default:
		return fmt.Errorf("printer: unknown format %q", p.opts.Format)
	}
}

// Text dumps the region in text form with default options.
func Text(w io.Writer, h *heap.Heap) error {
	return New(w, DefaultOptions()).Print(h)
}

// JSON dumps the region in JSON form with default options.
func JSON(w io.Writer, h *heap.Heap) error {
	opts := DefaultOptions()
	opts.Format = FormatJSON
	return New(w, opts).Print(h)
}

// walk visits every block in list order.
func walk(h *heap.Heap, visit func(heap.Block) error) error {
	it, err := h.Blocks()
	if err != nil {
		return err
	}
	for {
		b, err := it.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := visit(b); err != nil {
			return err
		}
	}
}
