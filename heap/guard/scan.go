package guard

import (
	"fmt"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/bitmap"
)

// MaxIssues caps the issues a Report lists.
const MaxIssues = 32

// IssueKind classifies a corruption finding.
type IssueKind int

const (
	IssueCounterMismatch IssueKind = iota + 1 // bitmap count disagrees with the allocator counter
	IssueReservedClear                        // a bitmap block is marked free
	IssueStartCanary                          // StartMagic missing where a span starts
	IssueEndCanary                            // EndMagic missing where a span ends
)

func (k IssueKind) String() string {
	switch k {
	case IssueCounterMismatch:
		return "counter mismatch"
	case IssueReservedClear:
		return "reserved block free"
	case IssueStartCanary:
		return "start canary"
	case IssueEndCanary:
		return "end canary"
	default:
		return fmt.Sprintf("IssueKind(%d)", int(k))
	}
}

// Issue is one corruption finding. Block is -1 for counter mismatches.
type Issue struct {
	Kind  IssueKind
	Block int
	Got   uint32
	Want  uint32
}

func (i Issue) String() string {
	if i.Kind == IssueCounterMismatch {
		return fmt.Sprintf("%s: bitmap has %d allocated blocks, counter has %d", i.Kind, i.Got, i.Want)
	}
	if i.Kind == IssueReservedClear {
		return fmt.Sprintf("%s at block %d", i.Kind, i.Block)
	}
	return fmt.Sprintf("%s at block %d: got 0x%08X want 0x%08X", i.Kind, i.Block, i.Got, i.Want)
}

// Report is the outcome of a corruption scan.
type Report struct {
	Corrupted     bool
	FirstBadBlock int    // -1 when no block-level issue was found
	BitmapCount   uint32 // allocated payload blocks according to the bitmap
	Counter       int64  // allocator counter, -1 when not cross-checked
	RunsChecked   int
	Issues        []Issue
	Truncated     bool // more than MaxIssues issues were found
}

func (r Report) String() string {
	if !r.Corrupted {
		return fmt.Sprintf("no corruption: %d runs checked", r.RunsChecked)
	}
	if r.FirstBadBlock >= 0 {
		return fmt.Sprintf("corruption detected at block %d (%d issues)", r.FirstBadBlock, len(r.Issues))
	}
	return fmt.Sprintf("corruption detected: %s", r.Issues[0])
}

type scanner struct {
	r   *heap.Region
	rep Report
}

func (s *scanner) add(is Issue) {
	s.rep.Corrupted = true
	if is.Block >= 0 && s.rep.FirstBadBlock < 0 {
		s.rep.FirstBadBlock = is.Block
	}
	if len(s.rep.Issues) >= MaxIssues {
		s.rep.Truncated = true
		return
	}
	s.rep.Issues = append(s.rep.Issues, is)
}

// Scan checks the whole heap. It verifies the bitmap's own blocks are marked
// allocated, compares the allocated payload count with counter (skipped when
// counter is negative), and checks canaries wherever a span boundary can be
// derived: the edges of every maximal allocated run, and boundaries inside a
// run that one of the canaries reveals. Scan never modifies the heap.
func Scan(r *heap.Region, bm bitmap.Bitmap, counter int64) Report {
	s := &scanner{r: r, rep: Report{FirstBadBlock: -1, Counter: counter}}
	reserved := r.ReservedBlocks()
	total := r.TotalBlocks()

	var reservedSet uint32
	for i := range reserved {
		if bm.Test(i) {
			reservedSet++
			continue
		}
		s.add(Issue{Kind: IssueReservedClear, Block: int(i)})
	}

	s.rep.BitmapCount = bm.Count() - reservedSet
	if counter >= 0 && int64(s.rep.BitmapCount) != counter {
		s.add(Issue{
			Kind:  IssueCounterMismatch,
			Block: -1,
			Got:   s.rep.BitmapCount,
			Want:  uint32(counter),
		})
	}

	bm.Runs(reserved, total, true, func(run bitmap.Run) bool {
		s.rep.RunsChecked++
		s.checkRun(run)
		return true
	})
	return s.rep
}

func (s *scanner) checkRun(run bitmap.Run) {
	if w := StartWord(s.r, run.Start); w != StartMagic {
		s.add(Issue{Kind: IssueStartCanary, Block: int(run.Start), Got: w, Want: StartMagic})
	}
	for b := run.Start + 1; b < run.End(); b++ {
		startsSpan := StartWord(s.r, b) == StartMagic
		prevEnds := EndWord(s.r, b-1) == EndMagic
		switch {
		case startsSpan && !prevEnds:
			s.add(Issue{Kind: IssueEndCanary, Block: int(b - 1), Got: EndWord(s.r, b-1), Want: EndMagic})
		case prevEnds && !startsSpan:
			s.add(Issue{Kind: IssueStartCanary, Block: int(b), Got: StartWord(s.r, b), Want: StartMagic})
		}
	}
	last := run.End() - 1
	if w := EndWord(s.r, last); w != EndMagic {
		s.add(Issue{Kind: IssueEndCanary, Block: int(last), Got: w, Want: EndMagic})
	}
}
