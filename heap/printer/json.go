package printer

import (
	"encoding/hex"
	"encoding/json"

	"github.com/heapkit/heapkit/heap"
)

// jsonHeap represents the region state in JSON format.
type jsonHeap struct {
	Head     uint32      `json:"head"`
	Tail     uint32      `json:"tail"`
	Size     int64       `json:"size"`
	DataSize uint32      `json:"data_size"`
	Blocks   []jsonBlock `json:"blocks"`
}

// jsonBlock represents one block in JSON format.
type jsonBlock struct {
	Addr    uint32 `json:"addr"`
	Size    uint32 `json:"size"`
	IsFree  bool   `json:"is_free"`
	Next    uint32 `json:"next"`
	Payload string `json:"payload,omitempty"`
}

// printJSON prints the region state as indented JSON.
func (p *Printer) printJSON(h *heap.Heap) error {
	out := jsonHeap{
		Head:     h.Head(),
		Tail:     h.Tail(),
		Size:     h.Size(),
		DataSize: h.DataSize(),
		Blocks:   []jsonBlock{},
	}

	err := walk(h, func(b heap.Block) error {
		jb := jsonBlock{
			Addr:   b.Offset,
			Size:   b.Size(),
			IsFree: b.IsFree(),
			Next:   b.Next(),
		}
		if p.opts.ShowPayload {
			preview := b.Payload()
			if p.opts.MaxPayloadBytes > 0 && len(preview) > p.opts.MaxPayloadBytes {
				preview = preview[:p.opts.MaxPayloadBytes]
			}
			jb.Payload = hex.EncodeToString(preview)
		}
		out.Blocks = append(out.Blocks, jb)
		return nil
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
