package heap

import (
	"fmt"
	"math"
	"math/bits"
)

const (
	// MinBlockSize leaves room for both canary words plus a payload word.
	MinBlockSize = 16

	// MaxSize keeps every offset representable as an Addr.
	MaxSize uint64 = math.MaxUint32
)

// Config describes the geometry of a heap region.
type Config struct {
	Size      int    // Total region size in bytes, bitmap included
	BlockSize int    // Allocation granule; a power of two
	Base      uint64 // Notional physical base address, display only
}

// DefaultConfig is the reference configuration: 4 MiB of cache-line sized blocks.
var DefaultConfig = Config{
	Size:      4 << 20,
	BlockSize: 64,
	Base:      0x4000_0000,
}

// Validate checks that the configuration describes a usable region.
func (c Config) Validate() error {
	if c.BlockSize < MinBlockSize || bits.OnesCount(uint(c.BlockSize)) != 1 {
		return fmt.Errorf("%w: block size %d must be a power of two >= %d",
			ErrBadConfig, c.BlockSize, MinBlockSize)
	}
	if c.Size <= 0 || uint64(c.Size) > MaxSize {
		return fmt.Errorf("%w: size %d out of range", ErrBadConfig, c.Size)
	}
	if c.Size%c.BlockSize != 0 {
		return fmt.Errorf("%w: size %d is not a multiple of block size %d",
			ErrBadConfig, c.Size, c.BlockSize)
	}
	total := c.TotalBlocks()
	if total%8 != 0 {
		return fmt.Errorf("%w: %d blocks do not fill whole bitmap bytes", ErrBadConfig, total)
	}
	if c.ReservedBlocks() >= total {
		return fmt.Errorf("%w: bitmap needs %d of %d blocks", ErrBadConfig, c.ReservedBlocks(), total)
	}
	return nil
}

// TotalBlocks returns Size / BlockSize.
func (c Config) TotalBlocks() uint32 {
	if c.BlockSize <= 0 {
		return 0
	}
	return uint32(c.Size / c.BlockSize)
}

// BitmapBytes returns the bitmap length: one bit per block.
func (c Config) BitmapBytes() int {
	return int(c.TotalBlocks() / 8)
}

// ReservedBlocks returns the number of blocks covering the bitmap.
func (c Config) ReservedBlocks() uint32 {
	if c.BlockSize <= 0 {
		return 0
	}
	return uint32((c.BitmapBytes() + c.BlockSize - 1) / c.BlockSize)
}

// PayloadBlocks returns the number of allocatable blocks.
func (c Config) PayloadBlocks() uint32 {
	return c.TotalBlocks() - c.ReservedBlocks()
}
