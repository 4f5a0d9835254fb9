// Package alloc is the fixed-block bitmap allocator.
//
// # Overview
//
// An Allocator hands out runs of equally sized blocks from a heap.Region. The
// region's bitmap is the only allocation record: bit i is set exactly when
// block i is allocated, and the blocks holding the bitmap are permanently set.
// An allocation is identified by the address of its first block; callers pass
// the same block count back when they free it.
//
//	r, err := heap.New(heap.DefaultConfig)
//	if err != nil {
//	    return err
//	}
//	a, err := alloc.New(r)
//	if err != nil {
//	    return err
//	}
//
//	addr, err := a.AllocBlocks(3)
//	if err != nil {
//	    return err // alloc.ErrOutOfMemory: defragment and retry, or give up
//	}
//	p, _ := a.Payload(addr, 3) // 3*64-8 usable bytes
//	copy(p, data)
//
//	err = a.FreeBlocks(addr, 3)
//
// # Canaries
//
// Every live span starts with guard.StartMagic and ends with guard.EndMagic.
// Payload excludes both words. Frees check the canaries and count mismatches in
// Counters without refusing the free; CheckCorruption scans the whole heap.
//
// # Scan Hint
//
// Searches start at a hint that sits just past the last allocation and moves
// back when a lower block is freed, so allocate/free churn finds space in
// O(1) amortised time. Searches wrap to the first payload block. Multi-block
// requests are first-fit and never compact on the caller's behalf.
//
// # Concurrency
//
// Every method runs inside one critical section (internal/spin): an optional
// interrupt mask, then a spinlock. Nothing blocks or sleeps, and nothing is
// cancellable; Stats, CheckCorruption and Defragment walk the whole bitmap
// with the lock held.
//
// # Defragmentation
//
// Defragment moves live runs down to close the gaps between them. Addresses
// held across the call go stale; DefragmentWithRelocations returns the moves
// so holders can translate them.
package alloc
