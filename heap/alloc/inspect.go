package alloc

import (
	"github.com/joshuapare/blockheap/heap/bitmap"
	"github.com/joshuapare/blockheap/heap/compact"
	"github.com/joshuapare/blockheap/heap/frag"
	"github.com/joshuapare/blockheap/heap/guard"
)

// Stats recomputes usage and fragmentation from the bitmap.
func (a *Allocator) Stats() frag.Stats {
	saved := a.lock.Acquire()
	defer a.lock.Release(saved)
	return frag.Analyze(a.bm, a.reserved, a.r.BlockSize())
}

// TryStats is Stats for callers that must not spin, such as an interrupt
// handler that preempted an allocation. ok is false when the allocator is
// busy.
func (a *Allocator) TryStats() (frag.Stats, bool) {
	saved, ok := a.lock.TryAcquire()
	if !ok {
		return frag.Stats{}, false
	}
	defer a.lock.Release(saved)
	return frag.Analyze(a.bm, a.reserved, a.r.BlockSize()), true
}

// CheckCorruption scans the whole heap for canary damage and compares the
// bitmap with the allocated-block counter. It never modifies the heap.
func (a *Allocator) CheckCorruption() guard.Report {
	saved := a.lock.Acquire()
	defer a.lock.Release(saved)
	return guard.Scan(a.r, a.bm, a.allocated)
}

// Defragment compacts all allocations toward the start of the payload area
// and returns the number of blocks moved. Zero means the heap was already
// compact. Addresses held across the call are stale afterwards.
func (a *Allocator) Defragment() uint32 {
	return a.DefragmentWithRelocations().Moved
}

// DefragmentWithRelocations is Defragment, also returning every move.
func (a *Allocator) DefragmentWithRelocations() compact.Result {
	saved := a.lock.Acquire()
	defer a.lock.Release(saved)

	res := compact.Compact(a.r, a.bm, a.dt)
	a.counters.Defrags++
	a.hint = res.Frontier
	if a.hint >= a.total {
		a.hint = a.reserved
	}
	return res
}

// Allocated returns the allocated-block counter.
func (a *Allocator) Allocated() int64 {
	saved := a.lock.Acquire()
	defer a.lock.Release(saved)
	return a.allocated
}

// Hint returns the current free-scan hint.
func (a *Allocator) Hint() uint32 {
	saved := a.lock.Acquire()
	defer a.lock.Release(saved)
	return a.hint
}

// Counters returns a copy of the running counters.
func (a *Allocator) Counters() Counters {
	saved := a.lock.Acquire()
	defer a.lock.Release(saved)
	c := a.counters
	if c.LastFault != nil {
		f := *c.LastFault
		c.LastFault = &f
	}
	return c
}

// Runs calls fn for every maximal allocated run in the payload area, under
// the lock. fn must not call back into the allocator.
func (a *Allocator) Runs(fn func(bitmap.Run) bool) {
	saved := a.lock.Acquire()
	defer a.lock.Release(saved)
	a.bm.Runs(a.reserved, a.total, true, fn)
}

// Snapshot copies the bitmap bytes under the lock.
func (a *Allocator) Snapshot() []byte {
	saved := a.lock.Acquire()
	defer a.lock.Release(saved)
	return append([]byte(nil), a.bm.Bytes()...)
}

// CorruptionEvents returns how many frees found a damaged canary.
func (a *Allocator) CorruptionEvents() int {
	saved := a.lock.Acquire()
	defer a.lock.Release(saved)
	return a.counters.CanaryFaults
}
