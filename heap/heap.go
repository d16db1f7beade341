package heap

import (
	"fmt"
	"os"

	"github.com/heapkit/heapkit/internal/format"
)

// defaultMaxSize caps growth at the image format limit (2GB - 1).
const defaultMaxSize = format.MaxHeapSize

// Heap is an opened heap region, backed by mmap (unix/darwin), a byte slice
// (other platforms), or an anonymous in-memory buffer.
type Heap struct {
	f       *os.File
	data    []byte
	size    int64
	maxSize int64
	base    *BaseBlock
}

// Option configures a Heap at construction time.
type Option func(*Heap)

// WithMaxSize caps the region size Append will grow to. Append requests that
// would push the region past max fail and leave the region unchanged.
func WithMaxSize(max int64) Option {
	return func(h *Heap) {
		if max > 0 {
			if max > format.MaxHeapSize {
				max = format.MaxHeapSize
			}
			h.maxSize = max
		}
	}
}

// New creates an anonymous in-memory heap containing only the base header.
// The region is not backed by a file; Sync and flush are no-ops.
func New(opts ...Option) *Heap {
	buf := make([]byte, format.HeaderSize)
	writeBaseHeader(buf, 0)

	h := &Heap{
		data:    buf,
		size:    int64(len(buf)),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	// Header already validated by construction.
	h.base, _ = ParseBaseBlock(h.data)
	return h
}

// BlockStart returns the absolute offset where block space begins.
func (h *Heap) BlockStart() uint32 {
	return uint32(format.HeaderSize)
}

// Bytes returns the raw region bytes. The slice is invalidated by Append and
// Truncate; re-fetch it after any operation that can resize the region.
func (h *Heap) Bytes() []byte { return h.data }

// Size returns the current region size in bytes.
func (h *Heap) Size() int64 { return h.size }

// Brk returns the current upper boundary of the region. A block whose
// payload ends here is the physical tail and can be returned to the
// environment by shrinking.
func (h *Heap) Brk() int64 { return h.size }

// MaxSize returns the growth cap for this region.
func (h *Heap) MaxSize() int64 { return h.maxSize }

// FD returns the backing file descriptor, or -1 for anonymous regions.
func (h *Heap) FD() int {
	if h == nil || h.f == nil {
		return -1
	}
	return int(h.f.Fd())
}

// Mapped reports whether the region is a live memory mapping of its file.
func (h *Heap) Mapped() bool {
	return h.f != nil && mapsFile
}

// WriteBackRange writes region bytes [off, off+n) to the backing file.
// No-op for anonymous regions and for live mappings, where mutations already
// land in the file's pages; only the copy-based loader needs explicit
// writeback.
func (h *Heap) WriteBackRange(off, n int64) error {
	if h.f == nil || mapsFile {
		return nil
	}
	if off < 0 || n <= 0 || off+n > h.size {
		return fmt.Errorf("heap: writeback range [%d,%d) outside region (size %d)", off, off+n, h.size)
	}
	_, err := h.f.WriteAt(h.data[off:off+n], off)
	return err
}

// Head returns the offset of the first block header, or 0 if the region
// holds no blocks.
func (h *Heap) Head() uint32 {
	if h == nil || h.base == nil {
		return format.NullOffset
	}
	return h.base.Head()
}

// Tail returns the offset of the last block header, or 0 if the region
// holds no blocks.
func (h *Heap) Tail() uint32 {
	if h == nil || h.base == nil {
		return format.NullOffset
	}
	return h.base.Tail()
}

// SetHead stores the first-block offset in the base header and refreshes the
// header checksum.
func (h *Heap) SetHead(off uint32) {
	format.PutU32(h.data, format.HeadOffset, off)
	updateHeaderChecksum(h.data)
}

// SetTail stores the last-block offset in the base header and refreshes the
// header checksum.
func (h *Heap) SetTail(off uint32) {
	format.PutU32(h.data, format.TailOffset, off)
	updateHeaderChecksum(h.data)
}

// DataSize returns the base header's record of block-space bytes.
func (h *Heap) DataSize() uint32 {
	if h == nil || h.base == nil {
		return 0
	}
	return h.base.DataSize()
}

// Blocks returns an iterator over all blocks in link order, starting at the
// head block.
func (h *Heap) Blocks() (*BlockIterator, error) {
	head := h.Head()
	if head != format.NullOffset && int64(head) >= h.size {
		return nil, fmt.Errorf("heap: head block (0x%X) beyond region size (%d)", head, h.size)
	}
	return &BlockIterator{
		h:    h,
		next: head,
	}, nil
}

// setDataSize records the block-space size in the base header and refreshes
// the checksum. Called by Append/Truncate after every resize so the header's
// logical end always matches the physical boundary.
func (h *Heap) setDataSize(dataSize uint32) {
	format.PutU32(h.data, format.DataSizeOffset, dataSize)
	updateHeaderChecksum(h.data)
}

// writeBaseHeader initializes a fresh base header for an empty region.
func writeBaseHeader(buf []byte, dataSize uint32) {
	copy(buf[format.SignatureOffset:], format.Signature)
	format.PutU32(buf, format.VersionOffset, format.Version)
	format.PutU32(buf, format.HeadOffset, format.NullOffset)
	format.PutU32(buf, format.TailOffset, format.NullOffset)
	format.PutU32(buf, format.DataSizeOffset, dataSize)
	updateHeaderChecksum(buf)
}
