//go:build linux || darwin

package heap

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/heapkit/heapkit/internal/format"
)

// mapsFile reports whether file-backed regions on this platform are live
// memory mappings (true) or in-memory copies (false).
const mapsFile = true

// Open mmaps the heap image RW so we can mutate in place.
func Open(path string, opts ...Option) (*Heap, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	sz := st.Size()
	if sz == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("empty heap image: %s", path)
	}

	data, err := unix.Mmap(
		int(f.Fd()),
		0,
		int(sz),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	bb, err := ParseBaseBlock(data)
	if err != nil {
		_ = unix.Munmap(data)
		_ = f.Close()
		return nil, err
	}

	if validateErr := bb.ValidateSanity(len(data)); validateErr != nil {
		_ = unix.Munmap(data)
		_ = f.Close()
		return nil, validateErr
	}

	h := &Heap{
		f:       f,
		data:    data,
		size:    sz,
		maxSize: defaultMaxSize,
		base:    bb,
	}
	for _, opt := range opts {
		opt(h)
	}

	// CRITICAL: Truncate any trailing slack space immediately after opening.
	// The tail block's payload must end exactly at the region boundary, so
	// the data size field is the single source of truth for where the
	// region ends. This must happen BEFORE any code stores references to
	// the data.
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
	if h.f != nil && h.data != nil {
		_ = unix.Munmap(h.data)
	}
	h.data = nil
	if h.f != nil {
		err = h.f.Close()
		h.f = nil
	}
	h.base = nil
	return err
}

// Append grows the region by n bytes and remaps the memory mapping.
// The new bytes are zero-initialized by the OS. On failure the region is
// unchanged and the call is safe to retry.
func (h *Heap) Append(n int64) error {
	if h == nil || h.data == nil {
		return errors.New("heap: cannot append to nil or closed heap")
	}
	if n <= 0 {
		return nil
	}

	newSize := h.size + n
	if newSize > h.maxSize {
		return fmt.Errorf("heap: cannot grow region beyond %d bytes (current=%d, requested grow=%d)",
			h.maxSize, h.size, n)
	}

	if h.f == nil {
		return h.appendMem(n)
	}

	// Unmap the current mapping
	if err := unix.Munmap(h.data); err != nil {
		return fmt.Errorf("heap: failed to unmap before grow: %w", err)
	}
	h.data = nil

	// Truncate file to new size (extends with zeros)
	if err := h.f.Truncate(newSize); err != nil {
		// Try to remap old size to recover
		data, _ := unix.Mmap(
			int(h.f.Fd()),
			0,
			int(h.size),
			unix.PROT_READ|unix.PROT_WRITE,
			unix.MAP_SHARED,
		)
		h.data = data
		return fmt.Errorf("heap: failed to truncate file: %w", err)
	}

	// Remap the entire file at the new size
	data, err := unix.Mmap(
		int(h.f.Fd()),
		0,
		int(newSize),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		// Try to remap old size to recover
		oldData, _ := unix.Mmap(
			int(h.f.Fd()),
			0,
			int(h.size),
			unix.PROT_READ|unix.PROT_WRITE,
			unix.MAP_SHARED,
		)
		h.data = oldData
		return fmt.Errorf("heap: failed to remap after grow: %w", err)
	}

	h.data = data
	h.size = newSize

	return h.finishResize("append")
}

// Truncate shrinks the region to the specified size and remaps the memory
// mapping. This is how tail blocks are physically returned to the
// environment, and how trailing slack is removed on open.
func (h *Heap) Truncate(newSize int64) error {
	if h == nil || h.data == nil {
		return errors.New("heap: cannot truncate nil or closed heap")
	}
	if newSize < int64(format.HeaderSize) {
		return fmt.Errorf("heap: truncate size %d too small (minimum %d)", newSize, format.HeaderSize)
	}
	if newSize > h.size {
		return fmt.Errorf(
			"heap: truncate cannot grow (current: %d, requested: %d), use Append instead",
			h.size,
			newSize,
		)
	}
	if newSize == h.size {
		return nil // No-op
	}

	if h.f == nil {
		return h.truncateMem(newSize)
	}

	// Unmap the current mapping
	if err := unix.Munmap(h.data); err != nil {
		return fmt.Errorf("heap: failed to unmap before truncate: %w", err)
	}
	h.data = nil

	// Truncate file to new size
	if err := h.f.Truncate(newSize); err != nil {
		// Try to remap old size to recover
		data, _ := unix.Mmap(
			int(h.f.Fd()),
			0,
			int(h.size),
			unix.PROT_READ|unix.PROT_WRITE,
			unix.MAP_SHARED,
		)
		h.data = data
		return fmt.Errorf("heap: failed to truncate file: %w", err)
	}

	// Remap the file at the new size
	data, err := unix.Mmap(
		int(h.f.Fd()),
		0,
		int(newSize),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		// Try to remap old size to recover
		oldData, _ := unix.Mmap(
			int(h.f.Fd()),
			0,
			int(h.size),
			unix.PROT_READ|unix.PROT_WRITE,
			unix.MAP_SHARED,
		)
		h.data = oldData
		return fmt.Errorf("heap: failed to remap after truncate: %w", err)
	}

	h.data = data
	h.size = newSize

	return h.finishResize("truncate")
}

// Sync flushes the whole mapping (and file metadata) to disk.
// No-op for anonymous regions.
func (h *Heap) Sync() error {
	if h == nil || h.f == nil || h.data == nil {
		return nil
	}
	if err := unix.Msync(h.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("heap: msync failed: %w", err)
	}
	return h.f.Sync()
}
