//go:build !linux && !darwin

package heap

import (
	"fmt"
	"io"
	"os"

	"github.com/heapkit/heapkit/internal/format"
)

// mapsFile reports whether file-backed regions on this platform are live
// memory mappings (true) or in-memory copies (false).
const mapsFile = false

// Open loads the heap image into memory on non-unix platforms (or when mmap
// isn't used). Mutations live in the buffer until Sync or dirty flushing
// writes them back.
func Open(path string, opts ...Option) (*Heap, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	sz := st.Size()
	if sz == 0 {
		f.Close()
		return nil, fmt.Errorf("empty heap image: %s", path)
	}

	buf := make([]byte, sz)
	if _, err := io.ReadFull(f, buf); err != nil {
		f.Close()
		return nil, err
	}

	bb, err := ParseBaseBlock(buf)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := bb.ValidateSanity(len(buf)); err != nil {
		f.Close()
		return nil, err
	}

	h := &Heap{
		f:       f,
		data:    buf,
		size:    sz,
		maxSize: defaultMaxSize,
		base:    bb,
	}
	for _, opt := range opts {
		opt(h)
	}

	// Truncate trailing slack so the tail block's payload end matches the
	// region boundary, same as the mmap path.
	logicalEnd := int64(format.HeaderSize) + int64(bb.DataSize())
	if sz > logicalEnd {
		if truncateErr := h.Truncate(logicalEnd); truncateErr != nil {
			_ = h.Close()
			return nil, fmt.Errorf("truncate trailing slack: %w", truncateErr)
		}
	}

	return h, nil
}

func (h *Heap) Close() error {
	var err error
	if h.f != nil {
		err = h.f.Close()
		h.f = nil
	}
	h.data = nil
	h.base = nil
	return err
}

// Append grows the region by n bytes and extends the in-memory buffer.
// The new bytes are zero-initialized.
func (h *Heap) Append(n int64) error {
	if h == nil || h.data == nil {
		return fmt.Errorf("heap: cannot append to nil or closed heap")
	}
	if n <= 0 {
		return nil
	}

	newSize := h.size + n
	if newSize > h.maxSize {
		return fmt.Errorf("heap: cannot grow region beyond %d bytes (current=%d, requested grow=%d)",
			h.maxSize, h.size, n)
	}

	if h.f != nil {
		// Extend the file first so a failure leaves the buffer untouched.
		if _, err := h.f.Seek(h.size, 0); err != nil {
			return fmt.Errorf("heap: failed to seek to end: %w", err)
		}
		zeros := make([]byte, n)
		if _, err := h.f.Write(zeros); err != nil {
			return fmt.Errorf("heap: failed to write extension: %w", err)
		}
	}

	return h.appendMem(n)
}

// Truncate shrinks the region to newSize bytes and resizes the in-memory
// buffer. This is how tail blocks are physically returned to the environment.
func (h *Heap) Truncate(newSize int64) error {
	if h == nil || h.data == nil {
		return fmt.Errorf("heap: cannot truncate nil or closed heap")
	}
	if newSize < int64(format.HeaderSize) {
		return fmt.Errorf("heap: truncate size %d too small (minimum %d)", newSize, format.HeaderSize)
	}
	if newSize > h.size {
		return fmt.Errorf("heap: truncate cannot grow (current: %d, requested: %d), use Append instead", h.size, newSize)
	}
	if newSize == h.size {
		return nil // No-op
	}

	if h.f != nil {
		// Truncate the file first (before allocating new memory)
		if err := h.f.Truncate(newSize); err != nil {
			return fmt.Errorf("heap: failed to truncate file: %w", err)
		}
	}

	return h.truncateMem(newSize)
}

// Sync writes the whole buffer back to the file. No-op for anonymous regions.
func (h *Heap) Sync() error {
	if h == nil || h.f == nil || h.data == nil {
		return nil
	}
	if _, err := h.f.WriteAt(h.data, 0); err != nil {
		return fmt.Errorf("heap: writeback failed: %w", err)
	}
	return h.f.Sync()
}
