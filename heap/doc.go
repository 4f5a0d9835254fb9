// Package heap defines the heap region that the block allocator manages and the
// arithmetic that maps between addresses and block indices.
//
// # Overview
//
// A Region is a fixed byte range carved into equally sized blocks. The region is
// created once, never resized and never relocated. The first bytes of the region
// hold the occupancy bitmap (one bit per block), so the allocator manages its own
// metadata out of the same arena it hands out:
//
//	+--------------------+-------------------------------------------+
//	| bitmap (reserved)  | payload blocks                            |
//	| TotalBlocks/8 B    | BlockSize-aligned                         |
//	+--------------------+-------------------------------------------+
//	0                    ReservedBlocks*BlockSize                     Size
//
// In the reference configuration (DefaultConfig) the region is 4 MiB of 64-byte
// blocks: 65536 blocks, an 8 KiB bitmap and 128 reserved blocks.
//
// # Addresses
//
// Addr is a byte offset from the start of the region, not a pointer. Every entry
// point that accepts an Addr from a caller validates it with CheckSpan before
// touching the arena. Phys maps an Addr onto the notional physical base from the
// configuration for display purposes.
//
// # Backing Store
//
// On unix systems New maps anonymous private memory with golang.org/x/sys/unix;
// elsewhere it falls back to a Go slice. OpenImage maps a file MAP_SHARED so the
// persisted layout can be inspected after the process exits. FromBytes wraps an
// existing buffer, typically a read-only image mapping.
//
// # Related Packages
//
//   - github.com/joshuapare/blockheap/heap/bitmap: occupancy bitmap over the region
//   - github.com/joshuapare/blockheap/heap/alloc: the allocator core
package heap
