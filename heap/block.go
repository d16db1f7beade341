package heap

import (
	"fmt"
	"io"

	"github.com/heapkit/heapkit/internal/format"
)

// Block is a zero-copy view of one block (16-byte header + payload) inside
// the region. Views are invalidated by Append/Truncate; re-fetch after any
// operation that can resize the region.
type Block struct {
	Data   []byte // full block bytes (header + payload), zero-copy view
	Offset uint32 // absolute region offset of this block's header
}

// BlockIterator walks the block list in link order, which by construction
// equals address order.
type BlockIterator struct {
	h    *Heap
	next uint32 // absolute offset of the next block header to visit
	done bool
}

// Next returns the next block or io.EOF.
func (it *BlockIterator) Next() (Block, error) {
	if it.done || it.next == format.NullOffset {
		it.done = true
		return Block{}, io.EOF
	}

	b, err := ParseBlockAt(it.h.data, it.next)
	if err != nil {
		// Surface the precise error (corruption, truncation, etc.).
		it.done = true
		return Block{}, err
	}

	next := b.Next()
	// Links are forward-only and address-ordered; a backwards or self link
	// means corruption, not a longer list.
	if next != format.NullOffset && next <= it.next {
		it.done = true
		return Block{}, fmt.Errorf("heap: block at 0x%X links backwards to 0x%X", it.next, next)
	}
	it.next = next

	return b, nil
}

// ParseBlockAt parses one block header at absolute offset `abs` and returns
// a zero-copy view over the backing region buffer.
func ParseBlockAt(region []byte, abs uint32) (Block, error) {
	regionLen := len(region)
	if regionLen > format.MaxHeapSize {
		return Block{}, fmt.Errorf("heap: region too large (%d bytes, max 2GB)", regionLen)
	}
	end := uint32(regionLen)

	if abs < format.HeaderSize {
		return Block{}, fmt.Errorf("heap: block offset 0x%X inside base header", abs)
	}
	if abs+format.BlockHeaderSize > end {
		return Block{}, fmt.Errorf("heap: block header truncated at 0x%X", abs)
	}

	hdr := region[abs : abs+format.BlockHeaderSize]
	size := format.ReadU32(hdr, format.BlockSizeOffset)

	// Bounds: header + payload must fit in the region.
	bend := abs + format.BlockHeaderSize + size
	if bend < abs || bend > end {
		return Block{}, fmt.Errorf("heap: block at 0x%X (size %d) exceeds region (0x%X)", abs, size, end)
	}

	if f := format.ReadU32(hdr, format.BlockFreeOffset); f != format.BlockFree && f != format.BlockUsed {
		return Block{}, fmt.Errorf("heap: block at 0x%X has invalid free flag %d", abs, f)
	}

	return Block{
		Data:   region[abs:bend], // zero-copy slice
		Offset: abs,
	}, nil
}

/* ---------- Zero-copy block helpers ---------- */

// Header returns the fixed-size block header bytes (zero-copy).
func (b *Block) Header() []byte { return b.Data[:format.BlockHeaderSize] }

// Payload returns the payload region following the header (zero-copy).
func (b *Block) Payload() []byte { return b.Data[format.BlockHeaderSize:] }

// Size returns the payload capacity in bytes, fixed at carve time.
func (b *Block) Size() uint32 { return format.ReadU32(b.Data, format.BlockSizeOffset) }

// IsFree reports whether the block is free for reuse.
func (b *Block) IsFree() bool {
	return format.ReadU32(b.Data, format.BlockFreeOffset) == format.BlockFree
}

// Next returns the offset of the next block header, or 0 for the tail.
func (b *Block) Next() uint32 { return format.ReadU32(b.Data, format.BlockNextOffset) }

// PayloadOffset returns the absolute region offset of the first payload byte.
func (b *Block) PayloadOffset() uint32 { return b.Offset + format.BlockHeaderSize }

// EndOffset returns the absolute region offset right after the payload.
func (b *Block) EndOffset() uint32 { return b.Offset + format.BlockHeaderSize + b.Size() }
