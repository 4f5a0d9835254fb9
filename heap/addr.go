package heap

import (
	"fmt"

	"github.com/joshuapare/blockheap/internal/buf"
)

// Addr is a byte offset from the start of a region.
type Addr uint32

func (a Addr) String() string { return fmt.Sprintf("0x%06X", uint32(a)) }

// AddrToBlock returns the index of the block containing a.
func (r *Region) AddrToBlock(a Addr) (uint32, error) {
	if int(a) >= len(r.data) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, a)
	}
	return uint32(a) / uint32(r.cfg.BlockSize), nil
}

// BlockToAddr returns the address of the first byte of block i.
func (r *Region) BlockToAddr(i uint32) (Addr, error) {
	if i >= r.total {
		return 0, fmt.Errorf("%w: block %d of %d", ErrOutOfRange, i, r.total)
	}
	return Addr(i * uint32(r.cfg.BlockSize)), nil
}

// IsAligned reports whether a is a multiple of the block size.
func (r *Region) IsAligned(a Addr) bool {
	return uint32(a)&uint32(r.cfg.BlockSize-1) == 0
}

// CheckSpan validates a caller-supplied span of count blocks at a and returns
// the first block index. The span must be aligned, inside the region and
// entirely in the payload area.
func (r *Region) CheckSpan(a Addr, count uint32) (uint32, error) {
	if !r.IsAligned(a) {
		return 0, fmt.Errorf("%w: %s", ErrMisaligned, a)
	}
	first, err := r.AddrToBlock(a)
	if err != nil {
		return 0, err
	}
	if first < r.reserved {
		return 0, fmt.Errorf("%w: %s", ErrReserved, a)
	}
	if _, err := buf.CheckSpanBounds(len(r.data), int(a), int(count), r.cfg.BlockSize); err != nil {
		return 0, fmt.Errorf("%w: %d blocks at %s: %v", ErrOutOfRange, count, a, err)
	}
	return first, nil
}

// PayloadStart returns the address of the first allocatable block.
func (r *Region) PayloadStart() Addr {
	return Addr(r.reserved * uint32(r.cfg.BlockSize))
}

// Phys maps a onto the configured physical base.
func (r *Region) Phys(a Addr) uint64 {
	return r.cfg.Base + uint64(a)
}
