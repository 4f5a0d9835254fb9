package verify

import (
	"fmt"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/bitmap"
	"github.com/joshuapare/blockheap/heap/guard"
	"github.com/joshuapare/blockheap/internal/buf"
)

// ValidationError describes one failed invariant.
type ValidationError struct {
	Type    string
	Message string
	Block   int // first offending block, -1 when not block-specific
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Block >= 0 {
		return fmt.Sprintf("%s at block %d: %s", e.Type, e.Block, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants runs Size, Reserved and Canaries and returns the first failure.
func AllInvariants(data []byte, cfg heap.Config) error {
	if err := Size(data, cfg); err != nil {
		return err
	}
	if err := Reserved(data, cfg); err != nil {
		return err
	}
	return Canaries(data, cfg)
}

// Size checks that data is exactly one region of cfg's geometry.
func Size(data []byte, cfg heap.Config) error {
	if err := cfg.Validate(); err != nil {
		return &ValidationError{Type: "Size", Message: err.Error(), Block: -1}
	}
	if len(data) != cfg.Size {
		return &ValidationError{
			Type:    "Size",
			Message: fmt.Sprintf("image is %d bytes, geometry needs %d", len(data), cfg.Size),
			Block:   -1,
		}
	}
	return nil
}

// Reserved checks that the bitmap marks its own blocks allocated.
func Reserved(data []byte, cfg heap.Config) error {
	r, bm, err := open(data, cfg)
	if err != nil {
		return err
	}
	for i := range r.ReservedBlocks() {
		if !bm.Test(i) {
			return &ValidationError{
				Type:    "Reserved",
				Message: "bitmap block not marked allocated",
				Block:   int(i),
				Details: map[string]any{"reserved": r.ReservedBlocks()},
			}
		}
	}
	return nil
}

// Canaries scans every allocated run for damaged canary words.
func Canaries(data []byte, cfg heap.Config) error {
	r, bm, err := open(data, cfg)
	if err != nil {
		return err
	}
	rep := guard.Scan(r, bm, -1)
	if !rep.Corrupted {
		return nil
	}
	details := map[string]any{"issues": len(rep.Issues), "truncated": rep.Truncated}
	msg := rep.String()
	if len(rep.Issues) > 0 {
		msg = rep.Issues[0].String()
	}
	return &ValidationError{Type: "Canaries", Message: msg, Block: rep.FirstBadBlock, Details: details}
}

// CounterMatches checks the bitmap's allocated payload blocks against counter.
func CounterMatches(data []byte, cfg heap.Config, counter int64) error {
	r, bm, err := open(data, cfg)
	if err != nil {
		return err
	}
	got := int64(bm.Count()) - int64(r.ReservedBlocks())
	if got != counter {
		return &ValidationError{
			Type:    "CounterMatches",
			Message: fmt.Sprintf("bitmap has %d allocated blocks, counter says %d", got, counter),
			Block:   -1,
			Details: map[string]any{"bitmap": got, "counter": counter},
		}
	}
	return nil
}

// FreeBlocksZeroed checks that every free payload block holds only zero bytes.
func FreeBlocksZeroed(data []byte, cfg heap.Config) error {
	r, bm, err := open(data, cfg)
	if err != nil {
		return err
	}
	var verr *ValidationError
	bm.Runs(r.ReservedBlocks(), r.TotalBlocks(), false, func(run bitmap.Run) bool {
		for i := run.Start; i < run.End(); i++ {
			if !buf.IsZero(r.Span(i, 1)) {
				verr = &ValidationError{
					Type:    "FreeBlocksZeroed",
					Message: "free block holds data",
					Block:   int(i),
				}
				return false
			}
		}
		return true
	})
	if verr != nil {
		return verr
	}
	return nil
}

func open(data []byte, cfg heap.Config) (*heap.Region, bitmap.Bitmap, error) {
	if err := Size(data, cfg); err != nil {
		return nil, bitmap.Bitmap{}, err
	}
	r, err := heap.FromBytes(data, cfg)
	if err != nil {
		return nil, bitmap.Bitmap{}, &ValidationError{Type: "Size", Message: err.Error(), Block: -1}
	}
	return r, bitmap.New(r.BitmapBytes(), r.TotalBlocks()), nil
}
