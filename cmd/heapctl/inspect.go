package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/bitmap"
	"github.com/joshuapare/blockheap/heap/frag"
	"github.com/joshuapare/blockheap/heap/guard"
	"github.com/joshuapare/blockheap/heap/printer"
	"github.com/joshuapare/blockheap/internal/mmfile"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "inspect <image>",
		Short: "Report on a heap image without modifying it",
		Long: `The inspect command maps an image read-only and prints its usage,
occupancy and corruption scan. The allocator counter is not stored in the
image, so the counter cross-check is skipped.

Example:
  heapctl inspect heap.img
  heapctl inspect heap.img --block-size 128 --size 8388608`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0])
		},
	})
}

type inspectResult struct {
	File   string            `json:"file"`
	Stats  frag.Stats        `json:"stats"`
	Map    printer.Occupancy `json:"map"`
	Report guard.Report      `json:"-"`
	Issues []string          `json:"issues,omitempty"`
	OK     bool              `json:"ok"`
}

func runInspect(path string) error {
	cfg := config()
	im, err := mmfile.Open(path, cfg.Size)
	if err != nil {
		return err
	}
	defer im.Close()

	r, err := heap.FromBytes(im.Bytes(), cfg)
	if err != nil {
		return err
	}
	bm := bitmap.New(r.BitmapBytes(), r.TotalBlocks())
	res := inspectResult{
		File:   path,
		Stats:  frag.Analyze(bm, r.ReservedBlocks(), r.BlockSize()),
		Map:    printer.Map(bm, r.ReservedBlocks(), printer.DefaultMapWidth, printer.DefaultMapRows),
		Report: guard.Scan(r, bm, -1),
	}
	res.OK = !res.Report.Corrupted
	res.FirstBad = res.Report.FirstBadBlock
	for _, is := range res.Report.Issues {
		res.Issues = append(res.Issues, is.String())
	}

	if jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		p := newPrinter()
		printInfo("%s\n", paint(headerStyle, "Image "+path))
		if err := p.Stats(res.Stats); err != nil {
			return err
		}
		printInfo("\n%s\n\n", renderMap(res.Map))
		if err := p.Report(res.Report); err != nil {
			return err
		}
	}
	if !res.OK {
		return errCorrupted
	}
	return nil
}
