// Package kheap is the kernel-facing heap: one allocator for the life of the
// process, set up once at boot and reachable from any context.
//
// Every call goes through the allocator's critical section, so foreground
// code and interrupt handlers may share it. Before Init, allocations fail with
// ErrNotInitialized and frees report false.
//
//	if err := kheap.Init(heap.DefaultConfig); err != nil {
//		panic(err)
//	}
//	addr, err := kheap.AllocateBlocks(4)
//	...
//	kheap.DeallocateBlocks(addr, 4)
package kheap

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/alloc"
	"github.com/joshuapare/blockheap/heap/frag"
	"github.com/joshuapare/blockheap/heap/guard"
	"github.com/joshuapare/blockheap/internal/logger"
)

var (
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("kheap: already initialized")

	// ErrNotInitialized is returned by allocations made before Init.
	ErrNotInitialized = errors.New("kheap: not initialized")
)

var (
	initMu  sync.Mutex
	current atomic.Pointer[alloc.Allocator]
)

// Init maps a fresh region with cfg and formats it.
func Init(cfg heap.Config, opts ...alloc.Option) error {
	initMu.Lock()
	defer initMu.Unlock()
	if current.Load() != nil {
		return ErrAlreadyInitialized
	}
	r, err := heap.New(cfg)
	if err != nil {
		return err
	}
	return install(r, opts)
}

// InitRegion formats a region the caller already holds, such as an image
// opened with heap.OpenImage.
func InitRegion(r *heap.Region, opts ...alloc.Option) error {
	initMu.Lock()
	defer initMu.Unlock()
	if current.Load() != nil {
		return ErrAlreadyInitialized
	}
	return install(r, opts)
}

func install(r *heap.Region, opts []alloc.Option) error {
	a, err := alloc.New(r, opts...)
	if err != nil {
		_ = r.Close()
		return err
	}
	current.Store(a)

	cfg := r.Config()
	logger.Info("heap initialized",
		"base", cfg.Base, "size", cfg.Size, "block_size", cfg.BlockSize,
		"blocks", r.TotalBlocks(), "reserved", r.ReservedBlocks())
	return nil
}

// Default returns the process allocator, or nil before Init.
func Default() *alloc.Allocator { return current.Load() }

// AllocateBlock allocates one block.
func AllocateBlock() (heap.Addr, error) {
	a := current.Load()
	if a == nil {
		return 0, ErrNotInitialized
	}
	return a.AllocBlock()
}

// AllocateBlocks allocates count contiguous blocks.
func AllocateBlocks(count uint32) (heap.Addr, error) {
	a := current.Load()
	if a == nil {
		return 0, ErrNotInitialized
	}
	return a.AllocBlocks(count)
}

// DeallocateBlock frees one block and reports whether it was freed.
func DeallocateBlock(addr heap.Addr) bool {
	return DeallocateBlocks(addr, 1)
}

// DeallocateBlocks frees count blocks at addr and reports whether they were
// freed. A false result leaves the heap unchanged.
func DeallocateBlocks(addr heap.Addr, count uint32) bool {
	a := current.Load()
	if a == nil {
		return false
	}
	if err := a.FreeBlocks(addr, count); err != nil {
		logger.Debug("free rejected", "addr", addr.String(), "blocks", count, "err", err)
		return false
	}
	return true
}

// Stats returns usage and fragmentation. The zero Stats is returned before Init.
func Stats() frag.Stats {
	a := current.Load()
	if a == nil {
		return frag.Stats{}
	}
	return a.Stats()
}

// TryStats is Stats without spinning, for interrupt context. ok is false
// before Init or while the allocator is busy.
func TryStats() (frag.Stats, bool) {
	a := current.Load()
	if a == nil {
		return frag.Stats{}, false
	}
	return a.TryStats()
}

// CheckCorruption scans the heap. Before Init it reports no corruption and no
// runs checked.
func CheckCorruption() guard.Report {
	a := current.Load()
	if a == nil {
		return guard.Report{FirstBadBlock: -1}
	}
	rep := a.CheckCorruption()
	if rep.Corrupted {
		logger.Warn("heap corruption", "first_bad_block", rep.FirstBadBlock, "issues", len(rep.Issues))
	}
	return rep
}

// Defragment compacts the heap and returns the number of blocks moved.
// Addresses held across the call are stale afterwards.
func Defragment() uint32 {
	a := current.Load()
	if a == nil {
		return 0
	}
	n := a.Defragment()
	logger.Debug("heap defragmented", "moved", n)
	return n
}
