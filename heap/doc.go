// Package heap implements the growable memory region that backs the
// allocator, together with the self-describing image format stored inside it.
//
// # Overview
//
// A Heap is a single contiguous byte region that grows and shrinks only at
// its upper boundary. Regions come in two flavors that share one layout:
//
//   - Anonymous in-memory regions created with New. These live and die with
//     the process.
//   - File-backed images created with Create and reopened with Open. On unix
//     these are memory-mapped read-write; elsewhere the file is read into
//     memory and written back on flush.
//
// # Image layout
//
// Every region starts with a 64-byte base header:
//
//	+0x00  signature "heap"
//	+0x04  format version (1)
//	+0x08  head: offset of the first block header (0 = none)
//	+0x0C  tail: offset of the last block header (0 = none)
//	+0x10  data size: bytes of block space after the header
//	+0x3C  checksum: XOR of the preceding 15 dwords
//
// Block space spans [64, 64+dataSize). Each block is a 16-byte header
// followed immediately by its payload; see the alloc package for the
// carving rules.
//
// # Growth primitive
//
// The allocator consumes three operations: Append(n) extends the region by n
// zero bytes, Truncate(n) shrinks it, and Brk() reports the current upper
// boundary (== region size). Append failure leaves the region unchanged so
// callers can retry.
//
// CRITICAL: Append and Truncate may remap the underlying memory. Any []byte
// window obtained from Bytes or from a Block view is invalid after either
// call and must be re-fetched.
//
// # Thread Safety
//
// Heap is not thread-safe. The alloc package owns serialization; every
// mutating allocator operation, including the nested Append/Truncate/Brk
// calls, runs under a single lock.
//
// # Related Packages
//
//   - github.com/heapkit/heapkit/heap/alloc: first-fit allocator over a Heap
//   - github.com/heapkit/heapkit/heap/dirty: dirty-range tracking and flushing
//   - github.com/heapkit/heapkit/heap/printer: diagnostic dumps of a Heap
package heap
