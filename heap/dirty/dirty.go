package dirty

import (
	"context"
	"sort"

	"github.com/joshuapare/blockheap/heap"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
	defaultRangeCapacity = 64

	// standardPageSize is the typical OS page size (4KB).
	standardPageSize = 4096
)

// FlushMode controls durability of FlushMeta.
type FlushMode int

const (
	// FlushAuto msyncs the bitmap pages and fdatasyncs the image file.
	FlushAuto FlushMode = iota

	// FlushDataOnly msyncs the bitmap pages only; the caller syncs the file later.
	FlushDataOnly

	// FlushFull behaves like FlushAuto and additionally requests F_FULLFSYNC on macOS.
	FlushFull
)

// Range is a dirty byte range (offsets from the start of the region).
type Range struct {
	Off int64
	Len int64
}

// End returns the first offset past the range.
func (r Range) End() int64 { return r.Off + r.Len }

// Tracker accumulates dirty ranges and flushes them.
type Tracker struct {
	r        *heap.Region
	ranges   []Range
	pageSize int64
	metaEnd  int64 // bitmap pages end here
}

// NewTracker creates a tracker for r.
func NewTracker(r *heap.Region) *Tracker {
	t := &Tracker{
		r:        r,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: standardPageSize,
	}
	t.metaEnd = t.roundUp(int64(len(r.BitmapBytes())))
	return t
}

// Add records a dirty range. It only appends; alignment and merging happen at
// flush time.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{Off: int64(off), Len: int64(length)})
}

// Len returns the number of raw ranges recorded since the last flush or reset.
func (t *Tracker) Len() int { return len(t.ranges) }

// Ranges returns the page-aligned, sorted, merged ranges a flush would write.
func (t *Tracker) Ranges() []Range { return t.coalesce() }

// Reset drops all recorded ranges.
func (t *Tracker) Reset() { t.ranges = t.ranges[:0] }

// FlushDataOnly flushes dirty payload pages, skipping the bitmap pages. The
// bitmap ranges stay recorded for FlushMeta.
func (t *Tracker) FlushDataOnly(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var meta []Range
	for _, rg := range t.coalesce() {
		if rg.Off < t.metaEnd {
			head := Range{Off: rg.Off, Len: min(rg.End(), t.metaEnd) - rg.Off}
			meta = append(meta, head)
			if rg.End() <= t.metaEnd {
				continue
			}
			rg = Range{Off: t.metaEnd, Len: rg.End() - t.metaEnd}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.flushRange(rg); err != nil {
			return err
		}
	}
	t.ranges = append(t.ranges[:0], meta...)
	return nil
}

// FlushMeta flushes the bitmap pages and, depending on mode, syncs the image
// file. Call it after FlushDataOnly.
func (t *Tracker) FlushMeta(ctx context.Context, mode FlushMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.flushRange(Range{Off: 0, Len: t.metaEnd}); err != nil {
		return err
	}
	t.Reset()
	if mode == FlushDataOnly || !t.r.Backed() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fdatasync(t.r.FD(), mode == FlushFull)
}

// Flush writes payload pages, then bitmap pages, then syncs the file.
func (t *Tracker) Flush(ctx context.Context) error {
	if err := t.FlushDataOnly(ctx); err != nil {
		return err
	}
	return t.FlushMeta(ctx, FlushAuto)
}

func (t *Tracker) flushRange(rg Range) error {
	if !t.r.Backed() {
		return nil
	}
	data := t.r.Bytes()
	end := min(rg.End(), int64(len(data)))
	if rg.Off >= end {
		return nil
	}
	return msync(data, data[rg.Off:end])
}

func (t *Tracker) roundUp(v int64) int64 {
	if v%t.pageSize == 0 {
		return v
	}
	return (v/t.pageSize + 1) * t.pageSize
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping or
// adjacent ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, rg := range t.ranges {
		start := (rg.Off / t.pageSize) * t.pageSize
		aligned[i] = Range{Off: start, Len: t.roundUp(rg.End()) - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.End() {
			current.Len = max(current.End(), next.End()) - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
