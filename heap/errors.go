package heap

import "errors"

var (
	// ErrOutOfRange indicates an address or block index outside the region.
	ErrOutOfRange = errors.New("heap: address out of range")

	// ErrMisaligned indicates an address that is not a multiple of the block size.
	ErrMisaligned = errors.New("heap: address not block aligned")

	// ErrReserved indicates an address inside the bitmap's own blocks.
	ErrReserved = errors.New("heap: address inside reserved metadata blocks")

	// ErrBadConfig indicates a configuration the region cannot be built from.
	ErrBadConfig = errors.New("heap: bad configuration")

	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("heap: region closed")
)
