// Package dirty provides efficient tracking and flushing of modified byte
// ranges in heap images.
//
// # Overview
//
// The tracker maintains a list of dirty byte ranges, coalesces them into
// page-aligned ranges, and flushes them to disk using platform-specific
// system calls (msync on Unix) or positional writes where the image is held
// as an in-memory copy. Anonymous regions have nothing to flush.
//
// # Usage
//
// Creating a tracker and wiring it into the allocator:
//
//	h, _ := heap.Open("app.heap")
//	tracker := dirty.NewTracker(h)
//	a, _ := alloc.New(h, tracker)
//
// The allocator marks every header, list-pointer, and payload mutation.
// Flushing at a convenient boundary:
//
//	if err := tracker.FlushDataOnly(ctx); err != nil { ... }
//	if err := tracker.FlushHeaderAndMeta(ctx, dirty.FlushAuto); err != nil { ... }
//
// # Range Coalescing
//
// Ranges are rounded to 4KB page boundaries and merged before flushing, so
// many small header touches collapse into a handful of write operations.
//
// # Thread Safety
//
// Tracker instances are not thread-safe by themselves. The allocator's lock
// already serializes the Add calls it issues; flushes must not race with
// allocator operations.
package dirty
