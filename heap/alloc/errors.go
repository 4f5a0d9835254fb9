package alloc

import "errors"

var (
	// ErrOutOfMemory indicates that no free block, or no free run long enough,
	// exists. Free space may still exist in smaller runs.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrInvalidArgument indicates a zero count, a misaligned or out-of-range
	// address, or a free that would split a live allocation.
	ErrInvalidArgument = errors.New("alloc: invalid argument")

	// ErrDoubleFree indicates a free of blocks that are not allocated.
	ErrDoubleFree = errors.New("alloc: double free or invalid address")

	// ErrNotFormatted indicates a region whose bitmap does not reserve its own blocks.
	ErrNotFormatted = errors.New("alloc: region bitmap not formatted")
)
