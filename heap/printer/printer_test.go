package printer

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapkit/heap"
	"github.com/heapkit/heapkit/heap/alloc"
)

func twoBlockHeap(t *testing.T) *heap.Heap {
	t.Helper()
	h := heap.New()
	a, err := alloc.New(h, nil)
	require.NoError(t, err)

	pA := a.Malloc(10)
	require.NotEqual(t, alloc.NullPtr, pA)
	copy(a.Payload(pA), []byte("payloadAAA"))
	pB := a.Malloc(24)
	require.NotEqual(t, alloc.NullPtr, pB)
	a.Free(pA) // not the tail: stays in place, marked free
	return h
}

func Test_Text_Output(t *testing.T) {
	h := twoBlockHeap(t)

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, h))

	want := "head = 0x40, tail = 0x5A\n" +
		"addr = 0x40, size = 10, is_free = 1, next = 0x5A\n" +
		"addr = 0x5A, size = 24, is_free = 0, next = 0x0\n"
	require.Equal(t, want, buf.String())
}

func Test_Text_EmptyRegion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, heap.New()))
	require.Equal(t, "head = 0x0, tail = 0x0\n", buf.String())
}

func Test_Text_PayloadPreview(t *testing.T) {
	h := twoBlockHeap(t)

	var buf bytes.Buffer
	p := New(&buf, Options{Format: FormatText, ShowPayload: true, MaxPayloadBytes: 4})
	require.NoError(t, p.Print(h))

	require.Contains(t, buf.String(), "  payload = 7061796c...\n")
}

func Test_JSON_Output(t *testing.T) {
	h := twoBlockHeap(t)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, h))

	var got struct {
		Head   uint32 `json:"head"`
		Tail   uint32 `json:"tail"`
		Size   int64  `json:"size"`
		Blocks []struct {
			Addr   uint32 `json:"addr"`
			Size   uint32 `json:"size"`
			IsFree bool   `json:"is_free"`
			Next   uint32 `json:"next"`
		} `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	require.Equal(t, uint32(0x40), got.Head)
	require.Equal(t, uint32(0x5A), got.Tail)
	require.Len(t, got.Blocks, 2)
	require.Equal(t, uint32(0x40), got.Blocks[0].Addr)
	require.True(t, got.Blocks[0].IsFree)
	require.Equal(t, uint32(24), got.Blocks[1].Size)
	require.False(t, got.Blocks[1].IsFree)
}

func Test_JSON_EmptyRegionHasEmptyBlockArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, heap.New()))
	require.Contains(t, buf.String(), `"blocks": []`)
}

func Test_Print_UnknownFormat(t *testing.T) {
	p := New(&bytes.Buffer{}, Options{Format: "yaml"})
	require.Error(t, p.Print(heap.New()))
}
