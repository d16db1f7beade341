package alloc

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapkit/internal/format"
)

// Mixed concurrent workload with a fixed seed per goroutine. Every operation
// is serialized by the allocator's internal lock; the test checks that the
// block list is structurally sound afterwards and that every live allocation
// kept its capacity.
func Test_Concurrent_MixedWorkload(t *testing.T) {
	a := newTestAllocator(t)

	const (
		goroutines = 8
		opsPerG    = 2000
	)

	type live struct {
		p    Ptr
		size int
	}
	results := make([][]live, goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(1000 + id)))
			var held []live
			for i := 0; i < opsPerG; i++ {
				switch {
				case len(held) > 0 && rng.Intn(3) == 0:
					j := rng.Intn(len(held))
					a.Free(held[j].p)
					held = append(held[:j], held[j+1:]...)
				case rng.Intn(4) == 0:
					size := 1 + rng.Intn(128)
					if p := a.Calloc(size, 4); p != NullPtr {
						held = append(held, live{p, size * 4})
					}
				default:
					size := 1 + rng.Intn(512)
					if p := a.Malloc(size); p != NullPtr {
						held = append(held, live{p, size})
					}
				}
			}
			results[id] = held
		}(g)
	}
	wg.Wait()

	require.NoError(t, Validate(a.Heap()))

	// Every surviving allocation still resolves and covers its request.
	total := 0
	for _, held := range results {
		for _, l := range held {
			require.GreaterOrEqual(t, a.Capacity(l.p), l.size)
			total++
		}
	}
	require.Positive(t, total, "workload should leave live allocations")

	// Release everything; whatever free blocks remain stranded are expected,
	// but the list must still validate.
	for _, held := range results {
		for _, l := range held {
			a.Free(l.p)
		}
	}
	require.NoError(t, Validate(a.Heap()))

	// Draining in descending address order collapses the region completely.
	drainToEmpty(t, a)
	require.Equal(t, int64(format.HeaderSize), a.Heap().Brk())
}

// drainToEmpty repeatedly frees the physical tail block until the region is
// back to header-only. Used blocks should all be gone by the time this runs.
func drainToEmpty(t *testing.T, a *Allocator) {
	t.Helper()
	for a.Heap().Tail() != format.NullOffset {
		tail := a.Heap().Tail()
		data := a.Heap().Bytes()
		if !blockIsFree(data, tail) {
			t.Fatalf("tail block at 0x%X still in use", tail)
		}
		a.Free(tail + format.BlockHeaderSize)
	}
}

func Test_Concurrent_ReallocUnderContention(t *testing.T) {
	a := newTestAllocator(t)

	const goroutines = 4
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(id)))
			p := a.Malloc(8)
			for i := 0; i < 500; i++ {
				np := a.Realloc(p, 8+rng.Intn(256))
				if np != NullPtr {
					p = np
				}
			}
			a.Free(p)
		}(g)
	}
	wg.Wait()

	require.NoError(t, Validate(a.Heap()))
}
