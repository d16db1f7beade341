package malloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/heap/alloc"
)

func Test_Default_LazyInit(t *testing.T) {
	a := Default()
	require.NotNil(t, a)
	require.Same(t, a, Default(), "Default must return the same allocator")
}

func Test_PackageLevel_RoundTrip(t *testing.T) {
	p := Malloc(32)
	require.NotEqual(t, NullPtr, p)
	require.Equal(t, 32, Capacity(p))

	buf := Payload(p)
	require.Len(t, buf, 32)
	buf[0] = 0x11
	require.Equal(t, byte(0x11), Payload(p)[0])

	Free(p)

	q := Calloc(4, 8)
	require.NotEqual(t, NullPtr, q)
	for _, b := range Payload(q) {
		require.Zero(t, b)
	}

	r := Realloc(q, 64)
	require.NotEqual(t, NullPtr, r)
	require.GreaterOrEqual(t, Capacity(r), 64)
	Free(r)

	require.Positive(t, Stats().MallocCalls)
}

func Test_SetDefault_Rebinds(t *testing.T) {
	old := Default()
	defer SetDefault(old)

	h := heap.New(heap.WithMaxSize(256))
	a, err := alloc.New(h, nil)
	require.NoError(t, err)

	SetDefault(a)
	require.Same(t, a, Default())

	// Requests now hit the rebound allocator and its size cap.
	require.Equal(t, NullPtr, Malloc(10_000))
	require.Equal(t, 1, a.Stats().GrowFailures)
}
