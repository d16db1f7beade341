package heap

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/heapkit/heapkit/internal/format"
)

// dwordBitShift is the bit shift to convert index to byte offset for DWORD arrays (i << 2 == i * 4).
const dwordBitShift = 2

// BaseBlock represents the 64-byte header at the start of the heap region.
// Zero-copy: all accessors read directly from b.raw.
type BaseBlock struct {
	raw []byte // len >= 64
}

// isHeapImage is a fast, zero-alloc check for the "heap" signature.
func isHeapImage(b []byte) bool {
	// caller must have ensured len(b) >= format.HeaderSize, but be defensive
	const off = format.SignatureOffset
	const n = format.SignatureSize
	if len(b) < off+n {
		return false
	}
	return bytes.Equal(b[off:off+n], format.Signature)
}

// ParseBaseBlock validates the signature and returns a header view.
func ParseBaseBlock(b []byte) (*BaseBlock, error) {
	if len(b) < format.HeaderSize {
		return nil, fmt.Errorf("heap: region too small for base header (%d)", len(b))
	}
	if !isHeapImage(b) {
		return nil, errors.New("heap: bad image signature")
	}
	return &BaseBlock{raw: b[:format.HeaderSize]}, nil
}

// ---- Primitive field readers (no alloc) ----

// Raw returns the raw bytes of the base header.
func (bb *BaseBlock) Raw() []byte { return bb.raw }

// Signature returns the "heap" signature bytes.
func (bb *BaseBlock) Signature() []byte {
	return bb.raw[format.SignatureOffset : format.SignatureOffset+format.SignatureSize]
}

// Version returns the image format version.
func (bb *BaseBlock) Version() uint32 { return format.ReadU32(bb.raw, format.VersionOffset) }

// Head returns the offset of the first block header (0 = none).
func (bb *BaseBlock) Head() uint32 { return format.ReadU32(bb.raw, format.HeadOffset) }

// Tail returns the offset of the last block header (0 = none).
func (bb *BaseBlock) Tail() uint32 { return format.ReadU32(bb.raw, format.TailOffset) }

// DataSize returns the size of the block space following the header.
func (bb *BaseBlock) DataSize() uint32 { return format.ReadU32(bb.raw, format.DataSizeOffset) }

// RegionLength reports region length = 64-byte header + DataSize.
func (bb *BaseBlock) RegionLength() int { return format.HeaderSize + int(bb.DataSize()) }

// ValidateSanity checks the header's reported length against the actual
// region size. Head/tail reachability is the alloc package's concern.
func (bb *BaseBlock) ValidateSanity(regionSize int) error {
	reported := bb.RegionLength()
	if reported > regionSize {
		return fmt.Errorf("heap: reported region length (%d) > region size (%d)", reported, regionSize)
	}
	return nil
}

// Validate performs a thorough header validation with descriptive errors.
// It does not walk the block list; it checks only the 64-byte base header
// against a provided regionSize (the entire image length).
//
// Policy choices (conservative but practical):
//   - Signature must be "heap"
//   - Version must be 1
//   - Checksum must be correct (XOR of the first 15 dwords)
//   - Reported RegionLength (64 + DataSize) must be <= regionSize
//   - Head and tail must both be null or both be non-null, and non-null
//     offsets must lie within block space
func (bb *BaseBlock) Validate(regionSize int) error {
	// Basic size & signature already checked by ParseBaseBlock, but keep messages local to Validate too.
	if len(bb.raw) < format.HeaderSize {
		return fmt.Errorf("heap: header truncated: have=%d need=%d", len(bb.raw), format.HeaderSize)
	}
	if !isHeapImage(bb.raw) {
		return errors.New("heap: bad signature")
	}

	if v := bb.Version(); v != format.Version {
		return fmt.Errorf("heap: unsupported format version %d (expected %d)", v, format.Version)
	}

	if !bb.ChecksumOK() {
		return fmt.Errorf("heap: checksum mismatch: stored=0x%08X computed=0x%08X",
			bb.StoredChecksum(), headerChecksum(bb.raw))
	}

	reported := bb.RegionLength()
	if reported > regionSize {
		return fmt.Errorf("heap: reported region length (%d) exceeds region size (%d)", reported, regionSize)
	}

	head, tail := bb.Head(), bb.Tail()
	if (head == format.NullOffset) != (tail == format.NullOffset) {
		return fmt.Errorf("heap: head/tail mismatch: head=0x%X tail=0x%X", head, tail)
	}
	if head != format.NullOffset {
		if head < format.HeaderSize || int(head) >= reported {
			return fmt.Errorf("heap: head offset (0x%X) outside block space", head)
		}
		if tail < format.HeaderSize || int(tail) >= reported {
			return fmt.Errorf("heap: tail offset (0x%X) outside block space", tail)
		}
		if tail < head {
			return fmt.Errorf("heap: tail (0x%X) precedes head (0x%X)", tail, head)
		}
	}

	return nil
}

// ChecksumOK computes the XOR checksum over the first 60 bytes and compares
// it to the stored value at 0x3C.
func (bb *BaseBlock) ChecksumOK() bool {
	return headerChecksum(bb.raw) == bb.StoredChecksum()
}

// StoredChecksum returns the checksum value stored in the header.
func (bb *BaseBlock) StoredChecksum() uint32 {
	return format.ReadU32(bb.raw, format.ChecksumOffset)
}

// ---- internals ----

// headerChecksum computes the XOR checksum over the 15 dwords preceding the
// checksum field.
func headerChecksum(hdr []byte) uint32 {
	var xor uint32
	for i := 0; i < format.ChecksumDwords; i++ {
		off := i << dwordBitShift
		xor ^= format.ReadU32(hdr, off)
	}
	return xor
}

// updateHeaderChecksum recomputes and stores the base header checksum.
// Must be called after any header field mutation.
func updateHeaderChecksum(data []byte) {
	if len(data) < format.HeaderSize {
		return
	}
	format.PutU32(data, format.ChecksumOffset, headerChecksum(data))
}
