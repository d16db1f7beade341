package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/internal/format"
)

func newTestAllocator(t *testing.T, opts ...heap.Option) *Allocator {
	t.Helper()
	h := heap.New(opts...)
	a, err := New(h, nil)
	require.NoError(t, err)
	return a
}

func Test_Malloc_ZeroAndNegativeSize(t *testing.T) {
	a := newTestAllocator(t)

	require.Equal(t, NullPtr, a.Malloc(0))
	require.Equal(t, NullPtr, a.Malloc(-5))

	// No side effects: region still header-only, list empty.
	require.Equal(t, int64(format.HeaderSize), a.Heap().Brk())
	require.Equal(t, uint32(format.NullOffset), a.Heap().Head())
}

func Test_Malloc_CarvesAtOldBoundary(t *testing.T) {
	a := newTestAllocator(t)

	p := a.Malloc(10)
	require.NotEqual(t, NullPtr, p)

	// First block header sits right after the image header; the payload is
	// exactly one header-size past it.
	require.Equal(t, Ptr(format.HeaderSize+format.BlockHeaderSize), p)
	require.Equal(t, 10, a.Capacity(p))
	require.Equal(t, int64(format.HeaderSize+format.BlockHeaderSize+10), a.Heap().Brk())

	// head == tail == the single block.
	require.Equal(t, uint32(format.HeaderSize), a.Heap().Head())
	require.Equal(t, uint32(format.HeaderSize), a.Heap().Tail())
}

func Test_Malloc_WriteReadIntegrity(t *testing.T) {
	a := newTestAllocator(t)

	for _, size := range []int{1, 7, 16, 100, 4096} {
		p := a.Malloc(size)
		require.NotEqual(t, NullPtr, p, "size %d", size)

		buf := a.Payload(p)
		require.Len(t, buf, size)
		for i := range buf {
			buf[i] = byte(i % 251)
		}

		// Re-fetch: no operations in between, but the contract is explicit.
		got := a.Payload(p)
		for i := range got {
			require.Equal(t, byte(i%251), got[i], "size %d offset %d", size, i)
		}
	}
}

// Scenario: A allocated, B allocated after it, A freed (not the physical
// tail, so it stays in place), and a smaller request reuses A's address.
func Test_Free_ThenReuse_FirstFit(t *testing.T) {
	a := newTestAllocator(t)

	pA := a.Malloc(10)
	require.NotEqual(t, NullPtr, pA)
	pB := a.Malloc(20)
	require.NotEqual(t, NullPtr, pB)

	a.Free(pA)

	// A is not the tail; boundary unchanged.
	brk := a.Heap().Brk()
	require.Equal(t, int64(format.HeaderSize+2*format.BlockHeaderSize+10+20), brk)

	p := a.Malloc(5)
	require.Equal(t, pA, p, "first fit should reuse the earliest free block")
	require.Equal(t, brk, a.Heap().Brk(), "reuse must not grow the region")

	// Capacity is the carve-time capacity, not the new request.
	require.Equal(t, 10, a.Capacity(p))
}

// Scenario: freeing the sole block shrinks the region and empties the list.
func Test_Free_SoleBlock_ShrinksToEmpty(t *testing.T) {
	a := newTestAllocator(t)

	pA := a.Malloc(10)
	require.NotEqual(t, NullPtr, pA)

	a.Free(pA)

	require.Equal(t, int64(format.HeaderSize), a.Heap().Brk())
	require.Equal(t, uint32(format.NullOffset), a.Heap().Head())
	require.Equal(t, uint32(format.NullOffset), a.Heap().Tail())
	require.NoError(t, Validate(a.Heap()))

	stats := a.Stats()
	require.Equal(t, 1, stats.ShrinkCalls)
	require.Equal(t, int64(format.BlockHeaderSize+10), stats.ShrinkBytes)
}

func Test_Free_TailBlock_RetargetsPredecessor(t *testing.T) {
	a := newTestAllocator(t)

	pA := a.Malloc(10)
	pB := a.Malloc(20)
	pC := a.Malloc(30)
	require.NotEqual(t, NullPtr, pC)

	a.Free(pC)

	// C was the physical tail: region shrinks, B becomes tail with nil next.
	require.Equal(t, int64(format.HeaderSize+2*format.BlockHeaderSize+10+20), a.Heap().Brk())
	require.Equal(t, pB-format.BlockHeaderSize, a.Heap().Tail())
	require.NoError(t, Validate(a.Heap()))

	// A untouched.
	require.Equal(t, pA, Ptr(format.HeaderSize+format.BlockHeaderSize))
}

// Freeing the tail does NOT cascade into a newly exposed free tail.
func Test_Free_SingleStepShrink_NoCascade(t *testing.T) {
	a := newTestAllocator(t)

	pA := a.Malloc(10)
	pB := a.Malloc(20)

	// A freed first: marked free in place (B follows it).
	a.Free(pA)
	// B freed second: tail shrink. A now ends at the boundary but stays.
	a.Free(pB)

	require.Equal(t, int64(format.HeaderSize+format.BlockHeaderSize+10), a.Heap().Brk())
	require.Equal(t, uint32(format.HeaderSize), a.Heap().Head())
	require.Equal(t, uint32(format.HeaderSize), a.Heap().Tail())
	require.NoError(t, Validate(a.Heap()))

	// The stranded free block is reusable; its own Free shrinks it away.
	p := a.Malloc(8)
	require.Equal(t, pA, p)
	a.Free(p)
	require.Equal(t, int64(format.HeaderSize), a.Heap().Brk())
}

func Test_Free_NullIsNoOp(t *testing.T) {
	a := newTestAllocator(t)
	a.Free(NullPtr) // must not panic
	require.Equal(t, 0, a.Stats().FreeCalls)
}

func Test_Free_DetectablyInvalidPointerPanics(t *testing.T) {
	a := newTestAllocator(t)
	p := a.Malloc(16)
	require.NotEqual(t, NullPtr, p)

	require.Panics(t, func() { a.Free(12) }, "pointer inside the image header")
	require.Panics(t, func() { a.Free(p + 100000) }, "pointer beyond the boundary")
}

func Test_Malloc_FirstFit_PrefersEarliestBlock(t *testing.T) {
	a := newTestAllocator(t)

	pA := a.Malloc(100)
	pB := a.Malloc(100)
	pC := a.Malloc(100)
	sentinel := a.Malloc(8) // keeps the frees below off the tail
	require.NotEqual(t, NullPtr, sentinel)

	a.Free(pB)
	a.Free(pA)
	a.Free(pC)

	// All three fit; list order wins, not free order or tightness.
	require.Equal(t, pA, a.Malloc(50))
	require.Equal(t, pB, a.Malloc(100))
	require.Equal(t, pC, a.Malloc(1))
}

func Test_Malloc_GrowFailure_StateUnchanged(t *testing.T) {
	// Room for exactly one block: header + 16-byte block header + 8 payload.
	cap := int64(format.HeaderSize + format.BlockHeaderSize + 8)
	a := newTestAllocator(t, heap.WithMaxSize(cap))

	pA := a.Malloc(8)
	require.NotEqual(t, NullPtr, pA)

	brk := a.Heap().Brk()
	require.Equal(t, NullPtr, a.Malloc(8), "second block exceeds the cap")

	// Safe to retry: nothing moved.
	require.Equal(t, brk, a.Heap().Brk())
	require.Equal(t, 8, a.Capacity(pA))
	require.NoError(t, Validate(a.Heap()))
	require.Equal(t, 1, a.Stats().GrowFailures)

	// After releasing memory the retry succeeds (first-fit reuse, no grow).
	a.Free(pA)
	require.NotEqual(t, NullPtr, a.Malloc(8))
}

func Test_Malloc_GrowHookSeesRequest(t *testing.T) {
	a := newTestAllocator(t)

	var got []int64
	a.onGrow = func(need int64) { got = append(got, need) }

	a.Malloc(100)
	require.Equal(t, []int64{int64(format.BlockHeaderSize + 100)}, got)
}

func Test_Stats_CountersTrack(t *testing.T) {
	a := newTestAllocator(t)

	pA := a.Malloc(10)
	pB := a.Malloc(20)
	a.Free(pA)
	pC := a.Malloc(5) // reuse of A
	require.Equal(t, pA, pC)
	_ = pB

	stats := a.Stats()
	require.Equal(t, 3, stats.MallocCalls)
	require.Equal(t, 1, stats.FreeCalls)
	require.Equal(t, 1, stats.ReuseHits)
	require.Equal(t, 2, stats.GrowCalls)
	require.Equal(t, int64(2*format.BlockHeaderSize+10+20), stats.GrowBytes)
	require.Equal(t, int64(10+20+5), stats.BytesAlloc)
	require.Equal(t, int64(10), stats.BytesFreed)
}
