package alloc

import "github.com/heapkit/heapkit/heap/dirty"

// Ptr is a payload handle - a uint32 offset of the payload's first byte
// inside the heap region. The block header sits exactly 16 bytes before it.
// 0 is the null handle: offset 0 is the image header, never a payload.
type Ptr = uint32

// NullPtr is the empty handle. Allocation returns it on failure; Free
// accepts it as a no-op.
const NullPtr Ptr = 0

// DirtyTracker is a type alias for the canonical interface defined in
// heap/dirty. This alias keeps the allocator's constructor signature local
// while avoiding a duplicate interface definition.
type DirtyTracker = dirty.DirtyTracker

// Stats holds internal allocator counters, exposed for instrumentation and
// tests.
type Stats struct {
	MallocCalls  int   // Total Malloc() calls (including internal ones from Calloc/Realloc)
	FreeCalls    int   // Total Free() calls
	CallocCalls  int   // Total Calloc() calls
	ReallocCalls int   // Total Realloc() calls
	ReuseHits    int   // First-fit matches served from existing free blocks
	GrowCalls    int   // Successful region extensions
	GrowBytes    int64 // Total bytes added by extension (headers included)
	GrowFailures int   // Extension attempts refused by the region
	ShrinkCalls  int   // Tail blocks physically returned to the environment
	ShrinkBytes  int64 // Total bytes returned (headers included)
	Overflows    int   // Calloc requests rejected for multiplicative overflow
	BytesAlloc   int64 // Total payload bytes handed out
	BytesFreed   int64 // Total payload bytes released
}
