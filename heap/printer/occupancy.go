package printer

import (
	"strings"

	"github.com/joshuapare/blockheap/heap/bitmap"
)

// Cell is the state of one occupancy-map cell, which covers one or more blocks.
type Cell byte

const (
	CellFree     Cell = '.'
	CellPartial  Cell = '+'
	CellUsed     Cell = '#'
	CellReserved Cell = 'R'
)

// Occupancy is a grid of cells summarising the bitmap.
type Occupancy struct {
	Width         int      `json:"width"`
	BlocksPerCell uint32   `json:"blocks_per_cell"`
	Cells         []Cell   `json:"-"`
	Rows          []string `json:"rows"`
}

// Map summarises bm into at most width*rows cells. A cell holding any bitmap
// block is reserved; otherwise it is used, free, or partial.
func Map(bm bitmap.Bitmap, reserved uint32, width, rows int) Occupancy {
	if width <= 0 {
		width = DefaultMapWidth
	}
	if rows <= 0 {
		rows = DefaultMapRows
	}
	total := bm.Len()
	per := (total + uint32(width*rows) - 1) / uint32(width*rows)
	if per == 0 {
		per = 1
	}

	occ := Occupancy{Width: width, BlocksPerCell: per}
	for start := uint32(0); start < total; start += per {
		end := min(start+per, total)
		var c Cell
		switch {
		case start < reserved:
			c = CellReserved
		case bm.AllSet(start, end-start):
			c = CellUsed
		default:
			if _, set := bm.NextSet(start, end); set {
				c = CellPartial
			} else {
				c = CellFree
			}
		}
		occ.Cells = append(occ.Cells, c)
	}
	for i := 0; i < len(occ.Cells); i += width {
		row := occ.Cells[i:min(i+width, len(occ.Cells))]
		occ.Rows = append(occ.Rows, string(cellBytes(row)))
	}
	return occ
}

func cellBytes(cells []Cell) []byte {
	b := make([]byte, len(cells))
	for i, c := range cells {
		b[i] = byte(c)
	}
	return b
}

// Map prints an occupancy grid with a legend.
func (p *Printer) Map(occ Occupancy) error {
	if p.JSON() {
		return p.writeJSON(occ)
	}
	p.printf("Occupancy: %d blocks per cell\n", occ.BlocksPerCell)
	for i, row := range occ.Rows {
		off := uint32(i*occ.Width) * occ.BlocksPerCell
		p.printf("%6d  %s\n", off, row)
	}
	p.printf("%s\n", strings.Join([]string{
		string(CellReserved) + " reserved",
		string(CellUsed) + " used",
		string(CellPartial) + " partly used",
		string(CellFree) + " free",
	}, "  "))
	return nil
}
