package printer

import (
	"encoding/hex"
	"fmt"

	"github.com/heapkit/heapkit/heap"
)

// printText prints the region state in human-readable text format, one line
// per block:
//
//	head = 0x40, tail = 0x60
//	addr = 0x40, size = 10, is_free = 0, next = 0x60
//	addr = 0x60, size = 24, is_free = 1, next = 0x0
func (p *Printer) printText(h *heap.Heap) error {
	if _, err := fmt.Fprintf(p.writer, "head = 0x%X, tail = 0x%X\n", h.Head(), h.Tail()); err != nil {
		return err
	}

	return walk(h, func(b heap.Block) error {
		free := 0
		if b.IsFree() {
			free = 1
		}
		if _, err := fmt.Fprintf(p.writer, "addr = 0x%X, size = %d, is_free = %d, next = 0x%X\n",
			b.Offset, b.Size(), free, b.Next()); err != nil {
			return err
		}
		if p.opts.ShowPayload {
			preview := b.Payload()
			truncated := false
			if p.opts.MaxPayloadBytes > 0 && len(preview) > p.opts.MaxPayloadBytes {
				preview = preview[:p.opts.MaxPayloadBytes]
				truncated = true
			}
			suffix := ""
			if truncated {
				suffix = "..."
			}
			if _, err := fmt.Fprintf(p.writer, "  payload = %s%s\n", hex.EncodeToString(preview), suffix); err != nil {
				return err
			}
		}
		return nil
	})
}
