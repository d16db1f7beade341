// Package malloc exposes a process-wide default allocator with C-shaped
// entry points, for deployments that want this allocator standing in for a
// platform allocator.
//
// The default allocator is created lazily, on first use, over an anonymous
// in-memory region; there is no reliance on package initialization order.
// Programs that want a file-backed or size-capped heap rebind the default
// before first use:
//
//	h, _ := heap.Open("app.heap")
//	a, _ := alloc.New(h, dirty.NewTracker(h))
//	malloc.SetDefault(a)
//
// The exported names and signatures mirror the classic allocator entry
// points one-for-one (size in bytes in, opaque handle out, null handle for
// failure), which is the load-bearing part of the interposition contract.
// All functions are safe for concurrent use.
package malloc

import (
	"sync"

	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/heap/alloc"
)

// Ptr is the payload handle type, re-exported for callers that only import
// this package.
type Ptr = alloc.Ptr

// NullPtr is the empty handle.
const NullPtr = alloc.NullPtr

var (
	mu       sync.RWMutex
	def      *alloc.Allocator
	initOnce sync.Once
)

// Default returns the process-wide allocator, creating it on first use.
func Default() *alloc.Allocator {
	initOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if def == nil {
			// An empty anonymous region cannot fail validation.
			def, _ = alloc.New(heap.New(), nil)
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return def
}

// SetDefault rebinds the process-wide allocator. Handles issued by the
// previous allocator are not transferable; rebind before handing out any.
func SetDefault(a *alloc.Allocator) {
	mu.Lock()
	defer mu.Unlock()
	def = a
	// Future Default() calls must not overwrite the rebind.
	initOnce.Do(func() {})
}

// Malloc allocates size bytes from the default allocator.
func Malloc(size int) Ptr {
	return Default().Malloc(size)
}

// Free releases a handle issued by the default allocator. NullPtr is a no-op.
func Free(p Ptr) {
	Default().Free(p)
}

// Calloc allocates count*elemSize zero-filled bytes from the default
// allocator, rejecting multiplicative overflow.
func Calloc(count, elemSize int) Ptr {
	return Default().Calloc(count, elemSize)
}

// Realloc resizes an allocation from the default allocator.
func Realloc(p Ptr, size int) Ptr {
	return Default().Realloc(p, size)
}

// Payload returns the payload window behind p.
func Payload(p Ptr) []byte {
	return Default().Payload(p)
}

// Capacity returns the recorded payload capacity behind p.
func Capacity(p Ptr) int {
	return Default().Capacity(p)
}

// Stats returns a snapshot of the default allocator's counters.
func Stats() alloc.Stats {
	return Default().Stats()
}
