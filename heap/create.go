package heap

import (
	"fmt"
	"os"

	"github.com/heapkit/heapkit/internal/format"
)

const createFileMode = 0o600

// Create writes a fresh, empty heap image at path and opens it.
// The new image contains only the base header: zero blocks, head and tail
// null, data size zero.
func Create(path string, opts ...Option) (*Heap, error) {
	buf := make([]byte, format.HeaderSize)
	writeBaseHeader(buf, 0)

	if err := os.WriteFile(path, buf, createFileMode); err != nil {
		return nil, fmt.Errorf("heap: create image: %w", err)
	}
	return Open(path, opts...)
}

// appendMem extends the in-memory buffer by n zero bytes. Used by anonymous
// regions on every platform and by file-backed regions where the buffer is a
// copy rather than a mapping.
func (h *Heap) appendMem(n int64) error {
	newSize := h.size + n

	// Grow the byte slice (zeros are automatically added)
	newData := make([]byte, newSize)
	copy(newData, h.data)

	h.data = newData
	h.size = newSize

	return h.finishResize("append")
}

// truncateMem shrinks the in-memory buffer to newSize bytes.
func (h *Heap) truncateMem(newSize int64) error {
	// Copy into a smaller slice so the tail bytes are actually released.
	newData := make([]byte, newSize)
	copy(newData, h.data[:newSize])

	h.data = newData
	h.size = newSize

	return h.finishResize("truncate")
}

// finishResize refreshes the header view and bookkeeping after any resize.
//
// CRITICAL: the base block must be re-parsed because h.data changed; the old
// view wraps a slice into the old data, which is now invalid. The data size
// field is rewritten so the header's logical end always equals the physical
// boundary (the tail block's payload end).
func (h *Heap) finishResize(op string) error {
	bb, err := ParseBaseBlock(h.data)
	if err != nil {
		return fmt.Errorf("heap: failed to re-parse base header after %s: %w", op, err)
	}
	h.base = bb
	h.setDataSize(uint32(h.size) - format.HeaderSize)
	return nil
}
