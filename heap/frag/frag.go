// Package frag derives usage and fragmentation statistics from the heap bitmap.
//
// Stats are recomputed with a full bitmap pass on every call; nothing is cached
// or tracked incrementally.
package frag

import "github.com/joshuapare/blockheap/heap/bitmap"

// Stats is a snapshot of heap usage. Reserved (bitmap) blocks are excluded from
// both the used and the free counts, so UsedBlocks+FreeBlocks == TotalBlocks.
type Stats struct {
	BlockSize      int    `json:"block_size"`
	TotalBlocks    uint32 `json:"total_blocks"`
	ReservedBlocks uint32 `json:"reserved_blocks"`

	UsedBlocks uint32 `json:"used_blocks"`
	FreeBlocks uint32 `json:"free_blocks"`
	UsedBytes  uint64 `json:"used_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`

	FreeRuns             int    `json:"free_runs"`
	LargestFreeRunBlocks uint32 `json:"largest_free_run_blocks"`
	LargestFreeRunBytes  uint64 `json:"largest_free_run_bytes"`
	FragmentationPct     int    `json:"fragmentation_pct"`
}

// Analyze computes Stats for the payload area [reserved, bm.Len()).
func Analyze(bm bitmap.Bitmap, reserved uint32, blockSize int) Stats {
	s := Stats{
		BlockSize:      blockSize,
		TotalBlocks:    bm.Len() - reserved,
		ReservedBlocks: reserved,
	}

	bm.Runs(reserved, bm.Len(), false, func(r bitmap.Run) bool {
		s.FreeRuns++
		s.FreeBlocks += r.Len
		if r.Len > s.LargestFreeRunBlocks {
			s.LargestFreeRunBlocks = r.Len
		}
		return true
	})

	s.UsedBlocks = s.TotalBlocks - s.FreeBlocks
	bs := uint64(blockSize)
	s.UsedBytes = uint64(s.UsedBlocks) * bs
	s.FreeBytes = uint64(s.FreeBlocks) * bs
	s.LargestFreeRunBytes = uint64(s.LargestFreeRunBlocks) * bs
	s.FragmentationPct = Percent(s.LargestFreeRunBlocks, s.FreeBlocks)
	return s
}

// Percent returns 1 - largest/free as a whole percentage, rounded down. It is
// 0 when all free space is one run or there is no free space.
func Percent(largest, free uint32) int {
	if free == 0 {
		return 0
	}
	return int(uint64(free-largest) * 100 / uint64(free))
}
