package printer

import (
	"github.com/joshuapare/blockheap/heap/compact"
	"github.com/joshuapare/blockheap/heap/frag"
	"github.com/joshuapare/blockheap/heap/guard"
)

// Stats prints a usage snapshot.
func (p *Printer) Stats(s frag.Stats) error {
	if p.JSON() {
		return p.writeJSON(s)
	}
	p.printf("Block size:        %d bytes\n", s.BlockSize)
	p.printf("Blocks:            %d payload, %d reserved\n", s.TotalBlocks, s.ReservedBlocks)
	p.printf("Used:              %d blocks (%d bytes)\n", s.UsedBlocks, s.UsedBytes)
	p.printf("Free:              %d blocks (%d bytes)\n", s.FreeBlocks, s.FreeBytes)
	p.printf("Free runs:         %d\n", s.FreeRuns)
	p.printf("Largest free run:  %d blocks (%d bytes)\n", s.LargestFreeRunBlocks, s.LargestFreeRunBytes)
	p.printf("Fragmentation:     %d%%\n", s.FragmentationPct)
	return nil
}

type jsonIssue struct {
	Kind  string `json:"kind"`
	Block int    `json:"block"`
	Got   uint32 `json:"got,omitempty"`
	Want  uint32 `json:"want,omitempty"`
}

type jsonReport struct {
	Corrupted     bool        `json:"corrupted"`
	FirstBadBlock int         `json:"first_bad_block"`
	BitmapCount   uint32      `json:"bitmap_count"`
	Counter       int64       `json:"counter"`
	RunsChecked   int         `json:"runs_checked"`
	Truncated     bool        `json:"truncated,omitempty"`
	Issues        []jsonIssue `json:"issues,omitempty"`
}

// Report prints a corruption scan result.
func (p *Printer) Report(r guard.Report) error {
	if p.JSON() {
		jr := jsonReport{
			Corrupted:     r.Corrupted,
			FirstBadBlock: r.FirstBadBlock,
			BitmapCount:   r.BitmapCount,
			Counter:       r.Counter,
			RunsChecked:   r.RunsChecked,
			Truncated:     r.Truncated,
		}
		for _, is := range r.Issues {
			jr.Issues = append(jr.Issues, jsonIssue{Kind: is.Kind.String(), Block: is.Block, Got: is.Got, Want: is.Want})
		}
		return p.writeJSON(jr)
	}

	p.printf("%s\n", r.String())
	p.printf("  allocated blocks: %d", r.BitmapCount)
	if r.Counter >= 0 {
		p.printf(" (counter %d)", r.Counter)
	}
	p.printf("\n")
	for _, is := range r.Issues {
		p.printf("  - %s\n", is.String())
	}
	if r.Truncated {
		p.printf("  ... more issues not shown\n")
	}
	return nil
}

// Defrag prints the outcome of a compaction pass.
func (p *Printer) Defrag(res compact.Result) error {
	if p.JSON() {
		return p.writeJSON(res)
	}
	if res.Moved == 0 {
		p.printf("Heap already compact\n")
		return nil
	}
	p.printf("Moved %d blocks in %d runs\n", res.Moved, len(res.Relocations))
	for _, rel := range res.Relocations {
		p.printf("  %s -> %s  %d blocks\n", p.addr(uint32(rel.From)), p.addr(uint32(rel.To)), rel.Blocks)
	}
	return nil
}
