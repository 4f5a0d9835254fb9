package buf

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// ErrSpanBounds is returned when a block span does not lie inside the arena.
var ErrSpanBounds = errors.New("span out of bounds")

// spanBytes returns count*blockSize, or ok=false when the product does not
// fit in an int.
func spanBytes(count, blockSize int) (int, bool) {
	hi, lo := bits.Mul64(uint64(count), uint64(blockSize))
	if hi != 0 || lo > math.MaxInt {
		return 0, false
	}
	return int(lo), true
}

// CheckSpanBounds checks that count blocks of blockSize bytes starting at
// offset end at or before arenaLen, and returns that end offset.
//
//	end, err := buf.CheckSpanBounds(len(arena), off, int(count), blockSize)
func CheckSpanBounds(arenaLen, offset, count, blockSize int) (int, error) {
	switch {
	case offset < 0:
		return 0, fmt.Errorf("%w: offset %d", ErrSpanBounds, offset)
	case count < 0:
		return 0, fmt.Errorf("%w: count %d", ErrSpanBounds, count)
	case blockSize <= 0:
		return 0, fmt.Errorf("%w: block size %d", ErrSpanBounds, blockSize)
	}

	n, ok := spanBytes(count, blockSize)
	if !ok || offset > arenaLen || n > arenaLen-offset {
		return 0, fmt.Errorf("%w: %d blocks of %d at %d, arena is %d bytes",
			ErrSpanBounds, count, blockSize, offset, arenaLen)
	}
	return offset + n, nil
}

// word returns b[off:off+4], or nil when the word does not fit.
func word(b []byte, off int) []byte {
	if off < 0 || off > len(b)-4 {
		return nil
	}
	return b[off : off+4]
}
