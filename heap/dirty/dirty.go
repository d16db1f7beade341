package dirty

import (
	"context"
	"sort"

	"github.com/heapkit/heapkit/heap"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	// This reduces allocations during typical workloads.
	defaultRangeCapacity = 64

	// standardPageSize is the typical OS page size (4KB).
	standardPageSize = 4096
)

// FlushMode controls durability guarantees when flushing.
type FlushMode int

const (
	// FlushAuto provides safe defaults for most use cases:
	// - flush dirty data ranges
	// - fdatasync() after the header write
	// - On macOS, uses F_FULLFSYNC-free fsync.
	FlushAuto FlushMode = iota

	// FlushDataOnly only flushes dirty data ranges.
	// The caller is responsible for syncing the descriptor later.
	// Use this when batching multiple flushes together.
	FlushDataOnly

	// FlushFull provides ultra-safe durability:
	// - flush dirty data ranges
	// - flush the header
	// - fdatasync() the file descriptor
	// - On macOS, uses F_FULLFSYNC
	// Use this for power-loss sensitive workflows.
	FlushFull
)

// Range represents a dirty byte range (absolute region offsets).
type Range struct {
	Off int64 // Absolute offset in the region
	Len int64 // Length in bytes
}

// Tracker accumulates dirty ranges and flushes them efficiently.
//
// NOT thread-safe on its own; the allocator's lock already serializes the
// Add calls it makes, and flushing is a single-caller affair.
type Tracker struct {
	h        *heap.Heap
	ranges   []Range // Dirty data ranges (coalesced at flush time)
	pageSize int64   // OS page size (typically 4096)
}

// NewTracker creates a dirty tracker for the given heap region.
//
// The tracker pre-allocates capacity for 64 ranges to minimize allocations
// during typical workloads.
func NewTracker(h *heap.Heap) *Tracker {
	return &Tracker{
		h:        h,
		ranges:   make([]Range, 0, defaultRangeCapacity), // Pre-allocate to avoid allocs
		pageSize: standardPageSize,
	}
}

// Add records a dirty range.
//
// The range will be page-aligned and coalesced with other ranges at flush
// time. This method only appends to a slice, so it is cheap enough to call
// from allocation hot paths.
func (t *Tracker) Add(off, length int) {
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// FlushDataOnly flushes all dirty data ranges (not the header) to disk.
//
// This method:
//  1. Coalesces all ranges into page-aligned, non-overlapping ranges
//  2. Flushes each range using msync() on mapped regions or WriteAt on
//     copy-based regions
//  3. Clears the ranges slice
//
// Anonymous regions have nothing to flush; the call just clears the ranges.
//
// The context can be used to cancel the flush operation. If cancelled during
// flushing, some ranges may have been flushed while others have not.
func (t *Tracker) FlushDataOnly(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}

	// Check for cancellation before starting
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.h.FD() < 0 {
		// Anonymous region: mutations are already where they live.
		t.ranges = t.ranges[:0]
		return nil
	}

	data := t.h.Bytes()
	if len(data) == 0 {
		return nil
	}

	if t.h.Mapped() {
		if err := t.flushRanges(data); err != nil {
			return err
		}
	} else {
		for _, r := range t.coalesce() {
			// Skip header range (offset 0); FlushHeaderAndMeta owns it.
			if r.Off == 0 {
				continue
			}
			end := r.Off + r.Len
			if end > int64(len(data)) {
				end = int64(len(data))
			}
			if end <= r.Off {
				continue
			}
			if err := t.h.WriteBackRange(r.Off, end-r.Off); err != nil {
				return err
			}
		}
	}

	// Clear ranges
	t.ranges = t.ranges[:0]
	return nil
}

// FlushHeaderAndMeta flushes the base header and optionally syncs the file
// descriptor.
//
// This method:
//  1. Flushes the first page (which contains the 64-byte base header)
//  2. Syncs the descriptor based on the FlushMode:
//     - FlushAuto: fdatasync()
//     - FlushDataOnly: no fdatasync()
//     - FlushFull: fdatasync() + F_FULLFSYNC on macOS
//
// The context can be used to cancel the operation. Note that if cancelled
// after the header is flushed but before the sync completes, the header may
// be inconsistent with the data ranges on disk.
func (t *Tracker) FlushHeaderAndMeta(ctx context.Context, mode FlushMode) error {
	// Check for cancellation before starting
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.h.FD() < 0 {
		return nil
	}

	data := t.h.Bytes()
	if len(data) == 0 {
		return nil
	}

	// Flush the first page (header)
	headerLen := int(t.pageSize)
	if headerLen > len(data) {
		headerLen = len(data)
	}
	if t.h.Mapped() {
		if err := msync(data[:headerLen]); err != nil {
			return err
		}
	} else {
		if err := t.h.WriteBackRange(0, int64(headerLen)); err != nil {
			return err
		}
	}

	// Check for cancellation before the descriptor sync
	if err := ctx.Err(); err != nil {
		return err
	}

	if mode == FlushDataOnly {
		return nil
	}

	fd := t.h.FD()
	fullfsync := (mode == FlushFull)
	return fdatasync(fd, fullfsync)
}

// Reset clears all tracked ranges.
//
// This is useful for testing or when abandoning a batch of mutations.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// DebugRanges returns the current dirty ranges (for testing/debugging).
//
// The returned ranges are the raw, uncoalesced ranges.
func (t *Tracker) DebugRanges() []Range {
	// Return a copy to prevent external modification
	result := make([]Range, len(t.ranges))
	copy(result, t.ranges)
	return result
}

// DebugCoalescedRanges returns the coalesced dirty ranges (for testing/debugging).
//
// These are page-aligned, sorted, and merged ranges that will be flushed.
func (t *Tracker) DebugCoalescedRanges() []Range {
	return t.coalesce()
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping or
// adjacent ranges. Returns a new slice of non-overlapping, sorted ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	// Page-align all ranges
	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		// Round down start to page boundary
		start := (r.Off / t.pageSize) * t.pageSize

		// Round up end to page boundary
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}

		aligned[i] = Range{
			Off: start,
			Len: end - start,
		}
	}

	// Sort by offset
	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	// Merge overlapping/adjacent ranges
	merged := make([]Range, 0, len(aligned))
	current := aligned[0]

	for i := 1; i < len(aligned); i++ {
		next := aligned[i]

		if next.Off <= current.Off+current.Len {
			// Merge: extend current to include next
			end := current.Off + current.Len
			nextEnd := next.Off + next.Len
			if nextEnd > end {
				end = nextEnd
			}
			current.Len = end - current.Off
		} else {
			// No overlap: save current and start new range
			merged = append(merged, current)
			current = next
		}
	}

	// Don't forget the last range
	merged = append(merged, current)

	return merged
}
