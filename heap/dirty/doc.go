// Package dirty tracks which byte ranges of a file-backed heap image have been
// written and flushes them to the image file.
//
// # Overview
//
// The allocator reports every write it makes to the arena (bitmap bytes,
// canaries, cleared spans, compaction copies) through the DirtyTracker
// interface. A Tracker accumulates those ranges, page-aligns and coalesces them,
// and flushes them with msync when the region is mapped from an image file.
//
// # Ordering
//
// Payload pages are flushed before the bitmap pages that describe them:
//
//	ctx := context.Background()
//	if err := tracker.FlushDataOnly(ctx); err != nil { ... } // payload pages
//	if err := tracker.FlushMeta(ctx, dirty.FlushAuto); err != nil { ... } // bitmap + fdatasync
//
// so an image on disk never has allocated bits pointing at unwritten payload.
//
// # Anonymous Regions
//
// Regions that are not backed by an image accept Add calls and report ranges,
// but flushing them is a no-op.
//
// # Thread Safety
//
// Tracker is not thread-safe. The allocator only calls Add inside its critical
// section; callers flushing concurrently with allocation must hold it too.
package dirty
