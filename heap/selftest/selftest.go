// Package selftest holds the heap acceptance drivers run from the shell's
// "test" command and from boot diagnostics.
//
// Each driver works against a live allocator, checks its own results, and
// frees everything it allocated so the heap is left as it was found (apart
// from the scan hint).
package selftest

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/alloc"
	"github.com/joshuapare/blockheap/heap/guard"
	"github.com/joshuapare/blockheap/internal/buf"
	"github.com/joshuapare/blockheap/internal/logger"
)

// ErrFailed wraps every driver failure.
var ErrFailed = errors.New("selftest: failed")

// ErrUnknown is returned by Run for a name with no driver.
var ErrUnknown = errors.New("selftest: unknown test")

// Test is one acceptance driver.
type Test struct {
	Name string
	Desc string
	Run  func(a *alloc.Allocator) error
}

var tests = []Test{
	{"single", "allocate one block, write, free, verify clear", Single},
	{"stress", "50 single blocks, free evens, reuse freed slots", Stress},
	{"boundary", "zero count, oversized run, double free, misaligned free", Boundary},
	{"multi", "three-block span written end to end and freed at once", Multi},
	{"corruption", "tamper a canary and expect the scan to find it", Corruption},
}

// All returns the drivers in run order.
func All() []Test { return slices.Clone(tests) }

// Names returns the driver names in run order.
func Names() []string {
	names := make([]string, len(tests))
	for i, t := range tests {
		names[i] = t.Name
	}
	return names
}

// Run runs the named driver, or every driver for "all".
func Run(a *alloc.Allocator, name string) error {
	if name == "all" {
		for _, t := range tests {
			if err := run(a, t); err != nil {
				return err
			}
		}
		return nil
	}
	for _, t := range tests {
		if t.Name == name {
			return run(a, t)
		}
	}
	return fmt.Errorf("%w: %q (have %s)", ErrUnknown, name, strings.Join(Names(), ", "))
}

func run(a *alloc.Allocator, t Test) error {
	logger.Debug("selftest start", "test", t.Name)
	if err := t.Run(a); err != nil {
		logger.Warn("selftest failed", "test", t.Name, "err", err)
		return fmt.Errorf("%s: %w", t.Name, err)
	}
	logger.Debug("selftest passed", "test", t.Name)
	return nil
}

func failf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFailed, fmt.Sprintf(format, args...))
}

// writeWord stores v in the first payload word of block i of the span.
func writeWord(a *alloc.Allocator, addr heap.Addr, i int, v uint32) error {
	span, err := a.Span(addr, uint32(i+1))
	if err != nil {
		return err
	}
	buf.PutU32LE(span[i*a.Region().BlockSize()+guard.WordSize:], v)
	return nil
}

func readWord(a *alloc.Allocator, addr heap.Addr, i int) (uint32, error) {
	span, err := a.Span(addr, uint32(i+1))
	if err != nil {
		return 0, err
	}
	return buf.U32LE(span[i*a.Region().BlockSize()+guard.WordSize:]), nil
}

// Single allocates a block, writes 0xDEADBEEF, frees it and checks the block
// reads back as the clear pattern.
func Single(a *alloc.Allocator) error {
	used := a.Stats().UsedBlocks
	addr, err := a.AllocBlock()
	if err != nil {
		return failf("alloc: %v", err)
	}
	logger.Debug("selftest alloc", "addr", addr.String())
	if err := writeWord(a, addr, 0, 0xDEADBEEF); err != nil {
		return err
	}
	if w, _ := readWord(a, addr, 0); w != 0xDEADBEEF {
		return failf("read back %#x", w)
	}
	if err := a.FreeBlock(addr); err != nil {
		return failf("free %s: %v", addr, err)
	}
	if got := a.Stats().UsedBlocks; got != used {
		return failf("used blocks %d after free, want %d", got, used)
	}
	span := a.Region().Span(uint32(addr)/uint32(a.Region().BlockSize()), 1)
	if !buf.IsZero(span) {
		return failf("freed block %s not cleared", addr)
	}
	return nil
}

// Stress allocates 50 blocks with distinct patterns, frees the even ones,
// checks the odd ones survived and that 10 new blocks reuse freed slots.
func Stress(a *alloc.Allocator) error {
	const n = 50
	addrs := make([]heap.Addr, 0, n)
	defer func() {
		for _, addr := range addrs {
			if addr != 0 {
				_ = a.FreeBlock(addr)
			}
		}
	}()

	for i := range n {
		addr, err := a.AllocBlock()
		if err != nil {
			return failf("alloc %d: %v", i, err)
		}
		addrs = append(addrs, addr)
		if err := writeWord(a, addr, 0, 0xABCD0000+uint32(i)); err != nil {
			return err
		}
	}

	freed := map[heap.Addr]bool{}
	for i := 0; i < n; i += 2 {
		if err := a.FreeBlock(addrs[i]); err != nil {
			return failf("free %d: %v", i, err)
		}
		freed[addrs[i]] = true
		addrs[i] = 0
	}
	for i := 1; i < n; i += 2 {
		w, err := readWord(a, addrs[i], 0)
		if err != nil {
			return err
		}
		if w != 0xABCD0000+uint32(i) {
			return failf("block %d reads %#x", i, w)
		}
	}

	for i := range 10 {
		addr, err := a.AllocBlock()
		if err != nil {
			return failf("realloc %d: %v", i, err)
		}
		addrs = append(addrs, addr)
		if !freed[addr] {
			return failf("realloc %d landed at %s, not a freed slot", i, addr)
		}
		delete(freed, addr)
	}
	return nil
}

// Boundary checks the rejected-argument paths leave the heap untouched.
func Boundary(a *alloc.Allocator) error {
	before := a.Snapshot()
	r := a.Region()

	if _, err := a.AllocBlocks(0); !errors.Is(err, alloc.ErrInvalidArgument) {
		return failf("zero count: %v", err)
	}
	if _, err := a.AllocBlocks(r.TotalBlocks() + 1); !errors.Is(err, alloc.ErrOutOfMemory) {
		return failf("oversized run: %v", err)
	}
	if err := a.FreeBlock(r.PayloadStart() + 1); !errors.Is(err, heap.ErrMisaligned) {
		return failf("misaligned free: %v", err)
	}
	if err := a.FreeBlock(0); !errors.Is(err, heap.ErrReserved) {
		return failf("reserved free: %v", err)
	}

	addr, err := a.AllocBlock()
	if err != nil {
		return failf("alloc: %v", err)
	}
	if err := a.FreeBlock(addr); err != nil {
		return failf("free: %v", err)
	}
	if err := a.FreeBlock(addr); !errors.Is(err, alloc.ErrDoubleFree) {
		return failf("double free: %v", err)
	}

	span, err := a.AllocBlocks(3)
	if err != nil {
		return failf("alloc: %v", err)
	}
	inner := span + heap.Addr(r.BlockSize())
	if err := a.FreeBlock(inner); !errors.Is(err, alloc.ErrInvalidArgument) {
		return failf("interior free: %v", err)
	}
	if err := a.FreeBlocks(span, 4); err == nil {
		return failf("overlong free succeeded")
	}
	if err := a.FreeBlocks(span, 3); err != nil {
		return failf("free: %v", err)
	}
	if !slices.Equal(before, a.Snapshot()) {
		return failf("bitmap changed")
	}
	return nil
}

// Multi allocates three contiguous blocks, writes every block and the last
// word of the span, then frees them in one call.
func Multi(a *alloc.Allocator) error {
	addr, err := a.AllocBlocks(3)
	if err != nil {
		return failf("alloc: %v", err)
	}
	for i := range 3 {
		if err := writeWord(a, addr, i, 0xB10C0000+uint32(i)); err != nil {
			return err
		}
	}
	for i := range 3 {
		if w, _ := readWord(a, addr, i); w != 0xB10C0000+uint32(i) {
			return failf("block %d reads %#x", i, w)
		}
	}
	span, err := a.Span(addr, 3)
	if err != nil {
		return err
	}
	buf.PutU32LE(span[len(span)-guard.WordSize:], 0x12345678)

	if err := a.FreeBlocks(addr, 3); err != nil {
		return failf("free: %v", err)
	}
	if buf.U32LE(span) != 0 || buf.U32LE(span[len(span)-guard.WordSize:]) != 0 {
		return failf("canary words not cleared")
	}
	return nil
}

// Corruption tampers the end canary of a live allocation, expects the scan
// to report it, then repairs and frees the allocation.
func Corruption(a *alloc.Allocator) error {
	if rep := a.CheckCorruption(); rep.Corrupted {
		return failf("heap already corrupted: %s", rep)
	}
	addr, err := a.AllocBlocks(2)
	if err != nil {
		return failf("alloc: %v", err)
	}
	span, err := a.Span(addr, 2)
	if err != nil {
		return err
	}
	end := span[len(span)-guard.WordSize:]
	saved := buf.U32LE(end)
	buf.PutU32LE(end, 0xBAD0BAD0)

	rep := a.CheckCorruption()
	buf.PutU32LE(end, saved)
	if err := a.FreeBlocks(addr, 2); err != nil {
		return failf("free: %v", err)
	}

	if !rep.Corrupted {
		return failf("tampered canary not detected")
	}
	first := int(uint32(addr) / uint32(a.Region().BlockSize()))
	if rep.FirstBadBlock < first || rep.FirstBadBlock > first+2 {
		return failf("reported block %d, tampered span starts at %d", rep.FirstBadBlock, first)
	}
	logger.Debug("selftest detected", "report", rep.String())
	return nil
}
