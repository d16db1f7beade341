// Package alloc provides first-fit free-list allocation over a growable
// heap region.
//
// # Overview
//
// This package is the bookkeeping engine of the repository: the block-header
// layout, the free-list search, the boundary-aware release logic, and the
// locking discipline around all of it. Everything else (diagnostic printing,
// the CLI, the process-wide facade) is a thin wrapper around an Allocator.
//
// # Allocation model
//
// Every allocation is a block: a 16-byte header followed immediately by its
// payload. Blocks are carved only by extending the region at its upper
// boundary, so the forward-only block list visits blocks in strictly
// increasing address order with no gaps:
//
//	[base header][hdr][payload][hdr][payload]...[hdr][payload]
//	 0           64                                           ^ boundary
//
// Malloc runs a first-fit scan from the head: the first free block whose
// capacity suffices wins, surplus and all. There is no best-fit, no
// splitting, no coalescing of adjacent free blocks, and no size classes -
// intentional simplifications. Which address a request reuses is observable
// behavior that callers may depend on, so these rules are part of the
// contract, not an implementation detail.
//
// Free distinguishes two cases. A block whose payload ends at the region
// boundary is the physical tail: it is unlinked and the region shrinks by
// header+size, one step only (a newly exposed free tail is not cascaded).
// Any other block is marked free in place and waits for reuse.
//
// # Handles
//
// Handles (Ptr) are uint32 payload offsets into the region, not raw
// pointers. The header is recovered by offset subtraction, validated
// against the region bounds; headerOf is the single place this arithmetic
// occurs. Handles survive remapping, but []byte payload windows do not -
// re-fetch them after any operation that can resize the region.
//
// # Failure model
//
// Expected failures (non-positive sizes, refused growth, multiplicative
// overflow in Calloc) return NullPtr and leave all allocator state
// unchanged; no errors, no panics. Construction-time corruption is reported
// through ErrBadImage/ErrCorruptList. Freeing a handle this allocator never
// issued is the caller's fault: detectably invalid handles panic, plausible
// stale ones are undefined.
//
// # Usage Example
//
//	h := heap.New()
//	a, err := alloc.New(h, nil)
//	if err != nil {
//	    return err
//	}
//
//	p := a.Malloc(256)
//	if p == alloc.NullPtr {
//	    return errors.New("out of memory")
//	}
//	copy(a.Payload(p), payload)
//	a.Free(p)
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. A single internal mutex
// serializes each operation in its entirety, including the nested region
// grow/shrink/boundary calls, so no two operations ever interleave their
// view of the boundary. Composite operations (Calloc, Realloc) hold the
// lock once for their whole duration.
//
// # Related Packages
//
//   - github.com/heapkit/heapkit/heap: the region primitive and image format
//   - github.com/heapkit/heapkit/heap/dirty: tracks modified ranges for flushing
//   - github.com/heapkit/heapkit/pkg/malloc: process-wide default allocator facade
package alloc
