package alloc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/internal/format"
)

// Debug flag - set to true to enable verbose logging (compile-time toggle).
const debugAlloc = false

// Runtime debug flag for allocation logging - controlled by HEAP_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAP_LOG_ALLOC") != ""

// Allocator is a first-fit free-list allocator over a single growable heap
// region. Blocks are carved only by extending the region at its upper
// boundary, so the forward-only link order equals address order. Blocks are
// never split, merged, or moved; a too-large free block keeps its surplus
// capacity, and only the physical tail block is ever returned to the
// environment.
//
// The head/tail list pointers live in the region's base header, so the image
// itself is the allocator state: a reopened image resumes exactly where it
// left off.
//
// A single internal mutex serializes the entirety of every mutating
// operation, including the nested Append/Truncate/Brk calls on the region,
// so the boundary check in Free always observes the region consistently
// with the in-progress operation.
type Allocator struct {
	mu sync.Mutex
	h  *heap.Heap
	dt DirtyTracker // Dirty range tracker for marking mutations (nil = no tracking)

	// Statistics for testing and instrumentation
	stats Stats

	// Test hook: called before Append() for test instrumentation (nil in production)
	onGrow func(int64)
}

// New creates an allocator over the given region.
//
// Parameters:
//   - h: The heap region to allocate from
//   - dt: Dirty tracker for marking mutations (can be nil)
//
// New validates the existing block list (bounds, contiguity, link order,
// tail-at-boundary) before use and refuses a corrupt image.
func New(h *heap.Heap, dt DirtyTracker) (*Allocator, error) {
	if err := Validate(h); err != nil {
		return nil, err
	}
	return &Allocator{
		h:  h,
		dt: dt,
	}, nil
}

// Heap returns the underlying region. Callers must not resize it directly
// while the allocator is in use.
func (a *Allocator) Heap() *heap.Heap { return a.h }

// Stats returns a snapshot of the allocator counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Malloc allocates size bytes and returns the payload handle, or NullPtr if
// size is not positive or the region cannot grow. A failed call leaves the
// allocator state unchanged, so callers may retry after freeing memory.
//
// The first free block (in list order) with sufficient capacity wins; its
// capacity is left as-is, so the returned block may be larger than
// requested. On a miss the region is extended by exactly header+size bytes
// and a new block is carved at the old boundary.
func (a *Allocator) Malloc(size int) Ptr {
	if size <= 0 {
		return NullPtr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.malloc(size)
}

// malloc is the lock-free core of Malloc. Callers must hold a.mu.
func (a *Allocator) malloc(size int) Ptr {
	a.stats.MallocCalls++

	// First-fit scan from the head block. First match wins; no best-fit,
	// no splitting of surplus capacity.
	data := a.h.Bytes()
	for off := a.h.Head(); off != format.NullOffset; off = blockNext(data, off) {
		if blockIsFree(data, off) && int64(blockSize(data, off)) >= int64(size) {
			setBlockFree(data, off, format.BlockUsed)
			if a.dt != nil {
				a.dt.Add(int(off), format.BlockHeaderSize)
			}
			a.stats.ReuseHits++
			a.stats.BytesAlloc += int64(size)
			if debugAlloc {
				debugLogf("Malloc(%d): reuse block at 0x%X (capacity %d)", size, off, blockSize(data, off))
			}
			return off + format.BlockHeaderSize
		}
	}

	// No match: carve a new block by extending the region. The previous
	// boundary becomes the new block's header offset.
	need := int64(format.BlockHeaderSize) + int64(size)
	oldBrk := a.h.Brk()

	if a.onGrow != nil {
		a.onGrow(need)
	}
	if err := a.h.Append(need); err != nil {
		a.stats.GrowFailures++
		if logAlloc {
			fmt.Fprintf(os.Stderr, "[ALLOC] GROW FAILED: need=%d brk=%d: %v\n", need, oldBrk, err)
		}
		return NullPtr
	}
	a.stats.GrowCalls++
	a.stats.GrowBytes += need

	// Re-fetch after remap: the old slice is invalid.
	data = a.h.Bytes()

	off := uint32(oldBrk)
	format.PutU32(data, int(off)+format.BlockSizeOffset, uint32(size))
	format.PutU32(data, int(off)+format.BlockFreeOffset, format.BlockUsed)
	format.PutU32(data, int(off)+format.BlockNextOffset, format.NullOffset)

	if tail := a.h.Tail(); tail != format.NullOffset {
		setBlockNext(data, tail, off)
		if a.dt != nil {
			a.dt.Add(int(tail), format.BlockHeaderSize)
		}
	} else {
		a.h.SetHead(off)
	}
	a.h.SetTail(off)

	if a.dt != nil {
		a.dt.Add(0, format.HeaderSize)
		a.dt.Add(int(off), format.BlockHeaderSize+size)
	}
	a.stats.BytesAlloc += int64(size)

	if logAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] GROW #%d: need=%d → block at 0x%X, brk=%d\n",
			a.stats.GrowCalls, size, off, a.h.Brk())
	}

	return off + format.BlockHeaderSize
}

// Free releases the block behind p. NullPtr is a no-op. If the block is the
// physical tail (its payload ends at the region boundary) it is unlinked and
// the region shrinks by header+size; otherwise the block is marked free in
// place for future reuse. No merging with adjacent free blocks occurs, and a
// newly exposed free tail is NOT cascaded into a further shrink.
//
// p must be a handle previously returned by Malloc/Calloc/Realloc on this
// allocator and not already freed; detectably invalid handles panic, stale
// but plausible ones are the caller's responsibility.
func (a *Allocator) Free(p Ptr) {
	if p == NullPtr {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.free(p)
}

// free is the lock-free core of Free. Callers must hold a.mu.
func (a *Allocator) free(p Ptr) {
	a.stats.FreeCalls++

	off := a.headerOf(p)
	data := a.h.Bytes()
	size := blockSize(data, off)
	a.stats.BytesFreed += int64(size)

	payloadEnd := int64(off) + format.BlockHeaderSize + int64(size)
	if payloadEnd != a.h.Brk() {
		// Not the physical tail: keep the block, mark it reusable.
		setBlockFree(data, off, format.BlockFree)
		if a.dt != nil {
			a.dt.Add(int(off), format.BlockHeaderSize)
		}
		return
	}

	// Physical tail: return the memory to the environment.
	head, tail := a.h.Head(), a.h.Tail()
	if tail != off {
		panic(fmt.Sprintf("alloc: block at 0x%X ends at brk but tail is 0x%X", off, tail))
	}

	// Find the predecessor first; the link is forward-only, so removing the
	// tail needs a linear scan from the head.
	prev := uint32(format.NullOffset)
	if head != off {
		prev = head
		for {
			next := blockNext(data, prev)
			if next == off {
				break
			}
			if next == format.NullOffset {
				panic(fmt.Sprintf("alloc: block at 0x%X not reachable from head 0x%X", off, head))
			}
			prev = next
		}
	}

	// Shrink before retargeting links so a refused shrink degrades to a
	// plain mark-free with the list still intact.
	shrink := int64(format.BlockHeaderSize) + int64(size)
	if err := a.h.Truncate(a.h.Brk() - shrink); err != nil {
		if logAlloc {
			fmt.Fprintf(os.Stderr, "[ALLOC] SHRINK FAILED at 0x%X: %v\n", off, err)
		}
		setBlockFree(data, off, format.BlockFree)
		if a.dt != nil {
			a.dt.Add(int(off), format.BlockHeaderSize)
		}
		return
	}
	a.stats.ShrinkCalls++
	a.stats.ShrinkBytes += shrink

	// Re-fetch after remap: the old slice is invalid.
	data = a.h.Bytes()

	if prev == format.NullOffset {
		// Sole block: the region is empty again.
		a.h.SetHead(format.NullOffset)
		a.h.SetTail(format.NullOffset)
	} else {
		setBlockNext(data, prev, format.NullOffset)
		a.h.SetTail(prev)
		if a.dt != nil {
			a.dt.Add(int(prev), format.BlockHeaderSize)
		}
	}
	if a.dt != nil {
		a.dt.Add(0, format.HeaderSize)
	}

	// Single shrink step only: if the block now ending at the boundary is
	// itself free, it stays until its own Free call. Cascading here would
	// change observable reuse behavior.

	if logAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] SHRINK #%d: block at 0x%X (%d bytes) returned, brk=%d\n",
			a.stats.ShrinkCalls, off, shrink, a.h.Brk())
	}
}

// Calloc allocates count*elemSize bytes, zero-filled. Returns NullPtr if
// either argument is not positive, if the multiplication overflows, or if
// allocation fails. The overflow check happens before any region growth.
func (a *Allocator) Calloc(count, elemSize int) Ptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.CallocCalls++

	if count <= 0 || elemSize <= 0 {
		return NullPtr
	}
	total := count * elemSize
	// Multiplicative overflow: dividing back must reproduce elemSize.
	if total/count != elemSize {
		a.stats.Overflows++
		return NullPtr
	}

	p := a.malloc(total)
	if p == NullPtr {
		return NullPtr
	}

	// A reused block may carry old payload bytes; fresh carves are zero
	// already, but zero the whole request unconditionally.
	data := a.h.Bytes()
	clear(data[p : int(p)+total])
	if a.dt != nil {
		a.dt.Add(int(p), total)
	}
	return p
}

// Realloc resizes the allocation behind p to size bytes.
//
// If p is NullPtr or size is zero, Realloc behaves exactly as Malloc(size) -
// in particular Realloc(p, 0) returns NullPtr and leaves p valid. If the
// block's capacity already covers size the same handle is returned
// unchanged; capacity is never shrunk. Otherwise a new block is allocated,
// the old capacity's worth of bytes is copied over, and the old block is
// freed. On allocation failure the original block is left fully intact and
// unreleased.
func (a *Allocator) Realloc(p Ptr, size int) Ptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.ReallocCalls++

	if p == NullPtr || size <= 0 {
		if size <= 0 {
			return NullPtr
		}
		return a.malloc(size)
	}

	off := a.headerOf(p)
	data := a.h.Bytes()
	capacity := blockSize(data, off)
	if int64(capacity) >= int64(size) {
		// Large enough already; surplus capacity is kept indefinitely.
		return p
	}

	np := a.malloc(size)
	if np == NullPtr {
		return NullPtr
	}

	// malloc may have remapped the region; re-fetch before copying.
	data = a.h.Bytes()
	copy(data[np:int(np)+int(capacity)], data[p:int(p)+int(capacity)])
	if a.dt != nil {
		a.dt.Add(int(np), int(capacity))
	}

	a.free(p)
	return np
}

// Capacity returns the payload capacity recorded for p, which may exceed
// the size originally requested. NullPtr reports zero.
func (a *Allocator) Capacity(p Ptr) int {
	if p == NullPtr {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	off := a.headerOf(p)
	return int(blockSize(a.h.Bytes(), off))
}

// Payload returns the payload window behind p, or nil for NullPtr.
//
// The window spans the block's full capacity. It is invalidated by any
// operation that can resize the region (Malloc, Calloc, Realloc, and Free of
// a tail block); re-fetch it afterwards.
func (a *Allocator) Payload(p Ptr) []byte {
	if p == NullPtr {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	off := a.headerOf(p)
	data := a.h.Bytes()
	return data[p : int64(p)+int64(blockSize(data, off))]
}

// headerOf recovers the block header offset by stepping back one header
// size from the payload handle. This is the only place payload-to-header
// arithmetic happens; everything it can check, it checks, and detectable
// violations panic with a descriptive message. A plausible but stale handle
// is undefined behavior by contract.
func (a *Allocator) headerOf(p Ptr) uint32 {
	if p < format.HeaderSize+format.BlockHeaderSize {
		panic(fmt.Sprintf("alloc: pointer 0x%X points inside the image header", p))
	}
	if int64(p) > a.h.Brk() {
		panic(fmt.Sprintf("alloc: pointer 0x%X beyond region boundary %d", p, a.h.Brk()))
	}
	return p - format.BlockHeaderSize
}

// Validate walks the block list and checks every structural invariant:
// header sanity, strictly increasing address order, contiguity (each block
// starts where the previous one ends, the first block starts right after the
// image header), link/tail agreement, and tail payload end at the region
// boundary.
func Validate(h *heap.Heap) error {
	bb, err := ParseRegionHeader(h)
	if err != nil {
		return err
	}

	head, tail := bb.Head(), bb.Tail()
	if head == format.NullOffset {
		if h.Brk() != int64(format.HeaderSize) {
			return fmt.Errorf("%w: empty list but boundary at %d", ErrCorruptList, h.Brk())
		}
		return nil
	}
	if head != uint32(format.HeaderSize) {
		return fmt.Errorf("%w: first block at 0x%X, expected 0x%X", ErrCorruptList, head, format.HeaderSize)
	}

	it, err := h.Blocks()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptList, err)
	}

	expectOff := head
	last := uint32(format.NullOffset)
	for {
		b, nextErr := it.Next()
		if nextErr != nil {
			if errors.Is(nextErr, io.EOF) {
				break
			}
			return fmt.Errorf("%w: %v", ErrCorruptList, nextErr)
		}
		if b.Offset != expectOff {
			return fmt.Errorf("%w: gap before block at 0x%X (expected 0x%X)", ErrCorruptList, b.Offset, expectOff)
		}
		expectOff = b.EndOffset()
		last = b.Offset
	}

	if last != tail {
		return fmt.Errorf("%w: last block 0x%X does not match tail 0x%X", ErrCorruptList, last, tail)
	}
	if int64(expectOff) != h.Brk() {
		return fmt.Errorf("%w: tail payload ends at 0x%X, boundary at %d", ErrCorruptList, expectOff, h.Brk())
	}
	return nil
}

// ParseRegionHeader revalidates the base header of a region and returns the
// view. Shared by Validate and diagnostic tooling.
func ParseRegionHeader(h *heap.Heap) (*heap.BaseBlock, error) {
	bb, err := heap.ParseBaseBlock(h.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if err := bb.Validate(int(h.Size())); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return bb, nil
}

// ============================================================================
// Internal helpers
// ============================================================================

// Block header field access on the raw region buffer. The heap.Block view
// exists for read-only traversal; the hot paths here poke fields directly.

func blockSize(data []byte, off uint32) uint32 {
	return format.ReadU32(data, int(off)+format.BlockSizeOffset)
}

func blockIsFree(data []byte, off uint32) bool {
	return format.ReadU32(data, int(off)+format.BlockFreeOffset) == format.BlockFree
}

func blockNext(data []byte, off uint32) uint32 {
	return format.ReadU32(data, int(off)+format.BlockNextOffset)
}

func setBlockFree(data []byte, off uint32, v uint32) {
	format.PutU32(data, int(off)+format.BlockFreeOffset, v)
}

func setBlockNext(data []byte, off, next uint32) {
	format.PutU32(data, int(off)+format.BlockNextOffset, next)
}

// debugLogf prints debug messages if debugAlloc is enabled.
func debugLogf(msg string, args ...any) {
	if debugAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] "+msg+"\n", args...)
	}
}
