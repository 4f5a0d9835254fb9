package alloc

import (
	"fmt"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/bitmap"
	"github.com/joshuapare/blockheap/heap/dirty"
	"github.com/joshuapare/blockheap/heap/guard"
	"github.com/joshuapare/blockheap/internal/spin"
)

// Allocator is a bitmap block allocator over one heap region.
type Allocator struct {
	r    *heap.Region
	bm   bitmap.Bitmap
	lock *spin.Lock
	dt   dirty.DirtyTracker

	reserved uint32 // first payload block
	total    uint32

	hint      uint32 // next block to try; always in [reserved, total)
	allocated int64  // payload blocks currently allocated

	counters Counters
}

// Counters are running totals kept by the allocator for diagnostics.
type Counters struct {
	AllocCalls   int // AllocBlock and AllocBlocks calls
	AllocFailed  int // calls that returned ErrOutOfMemory
	FreeCalls    int // FreeBlock and FreeBlocks calls
	DoubleFrees  int // frees rejected because a block was not allocated
	PartialFrees int // frees rejected because the span was not one whole allocation
	CanaryFaults int // frees that found a damaged canary
	Defrags      int
	LastFault    *Fault // most recent canary fault seen on free
}

// Fault describes a damaged canary seen while freeing.
type Fault struct {
	Addr    heap.Addr
	Blocks  uint32
	StartOK bool
	EndOK   bool
}

// New formats r for allocation: the whole arena is cleared and the blocks
// holding the bitmap are marked allocated.
func New(r *heap.Region, opts ...Option) (*Allocator, error) {
	a, err := newAllocator(r, opts)
	if err != nil {
		return nil, err
	}
	clear(r.Bytes())
	a.bm.SetRange(0, a.reserved)
	if a.dt != nil {
		a.dt.Add(0, r.Size())
	}
	return a, nil
}

// Attach resumes allocation over a region that already holds a formatted
// bitmap, such as a heap image written by an earlier run. The allocated-block
// counter is rebuilt from the bitmap.
func Attach(r *heap.Region, opts ...Option) (*Allocator, error) {
	a, err := newAllocator(r, opts)
	if err != nil {
		return nil, err
	}
	if !a.bm.AllSet(0, a.reserved) {
		return nil, ErrNotFormatted
	}
	a.allocated = int64(a.bm.Count() - a.reserved)
	if i, ok := a.bm.NextClear(a.reserved, a.total); ok {
		a.hint = i
	}
	return a, nil
}

func newAllocator(r *heap.Region, opts []Option) (*Allocator, error) {
	if len(r.BitmapBytes())*8 != int(r.TotalBlocks()) {
		return nil, fmt.Errorf("%w: %d bitmap bytes for %d blocks",
			heap.ErrBadConfig, len(r.BitmapBytes()), r.TotalBlocks())
	}
	a := &Allocator{
		r:        r,
		bm:       bitmap.New(r.BitmapBytes(), r.TotalBlocks()),
		lock:     spin.New(nil),
		reserved: r.ReservedBlocks(),
		total:    r.TotalBlocks(),
		hint:     r.ReservedBlocks(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Region returns the region the allocator manages.
func (a *Allocator) Region() *heap.Region { return a.r }

// AllocBlock allocates one block. The block is zeroed and stamped with
// canaries.
func (a *Allocator) AllocBlock() (heap.Addr, error) {
	saved := a.lock.Acquire()
	defer a.lock.Release(saved)

	a.counters.AllocCalls++
	i, ok := a.bm.NextClear(a.hint, a.total)
	if !ok {
		i, ok = a.bm.NextClear(a.reserved, a.hint)
	}
	if !ok {
		a.counters.AllocFailed++
		return 0, ErrOutOfMemory
	}
	return a.claim(i, 1), nil
}

// AllocBlocks allocates count contiguous blocks and returns the address of
// the first. It fails with ErrOutOfMemory when no free run of count blocks
// exists, even if enough free blocks exist in total.
func (a *Allocator) AllocBlocks(count uint32) (heap.Addr, error) {
	if count == 0 {
		return 0, fmt.Errorf("%w: zero block count", ErrInvalidArgument)
	}

	saved := a.lock.Acquire()
	defer a.lock.Release(saved)

	a.counters.AllocCalls++
	if count > a.total-a.reserved {
		a.counters.AllocFailed++
		return 0, fmt.Errorf("%w: %d blocks requested, heap has %d",
			ErrOutOfMemory, count, a.total-a.reserved)
	}
	first, ok := a.bm.FindClearRun(a.hint, a.total, count)
	if !ok {
		first, ok = a.bm.FindClearRun(a.reserved, a.total, count)
	}
	if !ok {
		a.counters.AllocFailed++
		return 0, ErrOutOfMemory
	}
	return a.claim(first, count), nil
}

// claim marks, clears and stamps count blocks at first. Caller holds the lock.
func (a *Allocator) claim(first, count uint32) heap.Addr {
	addr := heap.Addr(first * uint32(a.r.BlockSize()))
	span := a.r.Span(first, count)

	a.bm.SetRange(first, count)
	clear(span)
	guard.Stamp(a.r, addr, count)

	a.allocated += int64(count)
	a.hint = first + count
	if a.hint >= a.total {
		a.hint = a.reserved
	}
	if a.dt != nil {
		dirty.AddBits(a.dt, first, count)
		a.dt.Add(int(addr), len(span))
	}
	return addr
}

// FreeBlock frees the single block at addr.
func (a *Allocator) FreeBlock(addr heap.Addr) error {
	return a.FreeBlocks(addr, 1)
}

// FreeBlocks frees count blocks at addr. Either every block is freed or
// nothing changes: a block that is not allocated yields ErrDoubleFree, and a
// span the canaries show is not exactly one allocation (it starts inside one,
// stops short of its end, or runs into the next) yields ErrInvalidArgument. Damaged canaries are recorded in Counters but do not
// prevent the free.
func (a *Allocator) FreeBlocks(addr heap.Addr, count uint32) error {
	if count == 0 {
		return fmt.Errorf("%w: zero block count", ErrInvalidArgument)
	}
	first, err := a.r.CheckSpan(addr, count)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	saved := a.lock.Acquire()
	defer a.lock.Release(saved)

	a.counters.FreeCalls++
	if !a.bm.AllSet(first, count) {
		a.counters.DoubleFrees++
		return fmt.Errorf("%w: %d blocks at %s", ErrDoubleFree, count, addr)
	}

	startOK, endOK := guard.Check(a.r, addr, count)
	switch {
	case !startOK && a.beginsInside(first):
		a.counters.PartialFrees++
		return fmt.Errorf("%w: %s is inside an allocation", ErrInvalidArgument, addr)
	case !endOK && a.continuesPast(first, count):
		a.counters.PartialFrees++
		return fmt.Errorf("%w: allocation at %s is longer than %d blocks",
			ErrInvalidArgument, addr, count)
	}
	if b, ok := a.spansBoundary(first, count); ok {
		a.counters.PartialFrees++
		return fmt.Errorf("%w: %d blocks at %s run into the allocation at block %d",
			ErrInvalidArgument, count, addr, b)
	}
	if !startOK || !endOK {
		a.counters.CanaryFaults++
		a.counters.LastFault = &Fault{Addr: addr, Blocks: count, StartOK: startOK, EndOK: endOK}
	}

	span := a.r.Span(first, count)
	clear(span)
	a.bm.ClearRange(first, count)
	a.allocated -= int64(count)
	if first < a.hint {
		a.hint = first
	}
	if a.dt != nil {
		dirty.AddBits(a.dt, first, count)
		a.dt.Add(int(addr), len(span))
	}
	return nil
}

// continuesPast reports whether the block after the span is allocated but
// does not start a span of its own, meaning the caller's count is short.
func (a *Allocator) continuesPast(first, count uint32) bool {
	next := first + count
	if next >= a.total || !a.bm.Test(next) {
		return false
	}
	return guard.StartWord(a.r, next) != guard.StartMagic
}

// beginsInside reports whether the block before first is allocated and does
// not end a span, meaning first is not where an allocation starts.
func (a *Allocator) beginsInside(first uint32) bool {
	if first <= a.reserved || !a.bm.Test(first-1) {
		return false
	}
	return guard.EndWord(a.r, first-1) != guard.EndMagic
}

// spansBoundary returns the first block inside [first, first+count) that
// starts another allocation: it begins with StartMagic and the block before
// it ends with EndMagic.
func (a *Allocator) spansBoundary(first, count uint32) (uint32, bool) {
	for b := first + 1; b < first+count; b++ {
		if guard.StartWord(a.r, b) == guard.StartMagic && guard.EndWord(a.r, b-1) == guard.EndMagic {
			return b, true
		}
	}
	return 0, false
}

// Payload returns the caller-usable bytes of the span at addr: everything
// but the two canary words.
func (a *Allocator) Payload(addr heap.Addr, count uint32) ([]byte, error) {
	first, err := a.spanCheck(addr, count)
	if err != nil {
		return nil, err
	}
	span := a.r.Span(first, count)
	return span[guard.WordSize : len(span)-guard.WordSize], nil
}

// Span returns the raw bytes of count blocks at addr, canaries included.
func (a *Allocator) Span(addr heap.Addr, count uint32) ([]byte, error) {
	first, err := a.spanCheck(addr, count)
	if err != nil {
		return nil, err
	}
	return a.r.Span(first, count), nil
}

func (a *Allocator) spanCheck(addr heap.Addr, count uint32) (uint32, error) {
	if count == 0 {
		return 0, fmt.Errorf("%w: zero block count", ErrInvalidArgument)
	}
	first, err := a.r.CheckSpan(addr, count)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return first, nil
}

// IsAllocated reports whether the block containing addr is allocated.
func (a *Allocator) IsAllocated(addr heap.Addr) bool {
	i, err := a.r.AddrToBlock(addr)
	if err != nil {
		return false
	}
	saved := a.lock.Acquire()
	defer a.lock.Release(saved)
	return a.bm.Test(i)
}
