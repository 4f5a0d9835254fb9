// Package compact slides allocated runs toward the low end of the heap so
// that free space merges into one run at the top.
//
// Compaction moves bytes, canaries included, and rewrites the bitmap. It does
// not know who holds addresses into the moved runs: the Result lists every
// relocation so callers can translate addresses they kept across the call.
package compact

import (
	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/bitmap"
	"github.com/joshuapare/blockheap/heap/dirty"
)

// Relocation records one run moved from From to To.
type Relocation struct {
	From   heap.Addr `json:"from"`
	To     heap.Addr `json:"to"`
	Blocks uint32    `json:"blocks"`
}

// Result describes a compaction pass.
type Result struct {
	Moved       uint32       `json:"moved"`    // blocks relocated
	Frontier    uint32       `json:"frontier"` // first block past the compacted runs
	BlockSize   int          `json:"block_size"`
	Relocations []Relocation `json:"relocations,omitempty"`
}

// Translate maps an address that pointed into a relocated run onto its new
// location. ok is false when a was not moved.
func (res Result) Translate(a heap.Addr) (heap.Addr, bool) {
	bs := uint32(res.BlockSize)
	for _, rel := range res.Relocations {
		end := uint32(rel.From) + rel.Blocks*bs
		if uint32(a) >= uint32(rel.From) && uint32(a) < end {
			return rel.To + (a - rel.From), true
		}
	}
	return a, false
}

// Compact walks the payload area low to high and copies each allocated run
// found above the frontier down to it. Vacated bytes are cleared to zero. dt,
// when non-nil, is told about every byte range written.
func Compact(r *heap.Region, bm bitmap.Bitmap, dt dirty.DirtyTracker) Result {
	res := Result{Frontier: r.ReservedBlocks(), BlockSize: r.BlockSize()}
	data := r.Bytes()
	bs := r.BlockSize()

	bm.Runs(res.Frontier, r.TotalBlocks(), true, func(run bitmap.Run) bool {
		if run.Start == res.Frontier {
			res.Frontier = run.End()
			return true
		}

		to := res.Frontier
		src := int(run.Start) * bs
		dst := int(to) * bs
		n := int(run.Len) * bs
		copy(data[dst:dst+n], data[src:src+n])

		// Zero whatever part of the old run the new one does not cover.
		vacated := max(src, dst+n)
		clear(data[vacated : src+n])

		bm.ClearRange(run.Start, run.Len)
		bm.SetRange(to, run.Len)

		if dt != nil {
			dt.Add(dst, n)
			dt.Add(vacated, src+n-vacated)
			dirty.AddBits(dt, to, run.End()-to)
		}

		res.Relocations = append(res.Relocations, Relocation{
			From:   heap.Addr(src),
			To:     heap.Addr(dst),
			Blocks: run.Len,
		})
		res.Moved += run.Len
		res.Frontier = to + run.Len
		return true
	})
	return res
}
