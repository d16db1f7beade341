// Package format houses the low-level layout constants and decoders for the
// heap image format. The goal is to keep the byte-level knowledge in one
// place, allocation-free where possible, and independent from the public API
// so higher-level packages can orchestrate the data in a more ergonomic form.
package format

var (
	// Signature is the four-byte signature at the start of every heap image.
	// Layout (little-endian):
	//   0x00  'h' 'e' 'a' 'p'
	Signature = []byte{'h', 'e', 'a', 'p'}
)

const (
	// HeaderSize is the size of the base header in bytes. Block space starts
	// immediately after it.
	HeaderSize = 64

	// Version is the current image format version.
	Version = 1

	// BlockHeaderSize is the number of bytes used by the block header
	// preceding every payload. The addressing contract aligns this to a
	// 16-byte boundary; payload offsets are always exactly this far past
	// their header.
	BlockHeaderSize = 16

	// NullOffset is the null block reference. Offset 0 is the base header,
	// never a block, so 0 is free to mean "none".
	NullOffset = 0

	// MaxHeapSize is the maximum heap image size (2GB - 1). Block offsets
	// must fit in int32 so offset arithmetic never overflows.
	MaxHeapSize = 0x7FFFFFFF

	// Base header field offsets.
	SignatureOffset = 0x00 // 4 bytes
	SignatureSize   = 4
	VersionOffset   = 0x04 // u32
	HeadOffset      = 0x08 // u32, offset of first block header (0 = none)
	TailOffset      = 0x0C // u32, offset of last block header (0 = none)
	DataSizeOffset  = 0x10 // u32, bytes of block space after the header
	ChecksumOffset  = 0x3C // u32, XOR of the preceding 15 dwords

	// ChecksumDwords is the number of dwords covered by the checksum
	// (everything in the header before the checksum field itself).
	ChecksumDwords = ChecksumOffset / 4

	// Block header field offsets (relative to the block header start).
	BlockSizeOffset = 0x00 // u32, payload capacity in bytes (exact, no rounding)
	BlockFreeOffset = 0x04 // u32, 1 = free, 0 = in use
	BlockNextOffset = 0x08 // u32, offset of next block header (0 = none)

	// BlockFree and BlockUsed are the two legal values of the free field.
	BlockFree = 1
	BlockUsed = 0
)
