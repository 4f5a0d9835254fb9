package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joshuapare/blockheap/heap/printer"
)

var (
	// Color palette
	usedColor     = lipgloss.Color("#7D56F4")
	partialColor  = lipgloss.Color("#FFA500")
	freeColor     = lipgloss.Color("#04B575")
	reservedColor = lipgloss.Color("#666666")
	errorColor    = lipgloss.Color("#FF4B4B")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(usedColor)

	cellStyles = map[printer.Cell]lipgloss.Style{
		printer.CellUsed:     lipgloss.NewStyle().Foreground(usedColor),
		printer.CellPartial:  lipgloss.NewStyle().Foreground(partialColor),
		printer.CellFree:     lipgloss.NewStyle().Foreground(freeColor),
		printer.CellReserved: lipgloss.NewStyle().Foreground(reservedColor),
	}

	okStyle  = lipgloss.NewStyle().Bold(true).Foreground(freeColor)
	badStyle = lipgloss.NewStyle().Bold(true).Foreground(errorColor)

	mapBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(reservedColor).
			Padding(0, 1)
)

// paint renders s with style unless color is disabled.
func paint(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}

// renderMap draws an occupancy grid with one colored glyph per cell.
func renderMap(occ printer.Occupancy) string {
	var b strings.Builder
	for i, c := range occ.Cells {
		if i > 0 && i%occ.Width == 0 {
			b.WriteByte('\n')
		}
		b.WriteString(paint(cellStyles[c], string(c)))
	}
	grid := b.String()
	if !noColor {
		grid = mapBorder.Render(grid)
	}
	legend := strings.Join([]string{
		paint(cellStyles[printer.CellReserved], "R") + " reserved",
		paint(cellStyles[printer.CellUsed], "#") + " used",
		paint(cellStyles[printer.CellPartial], "+") + " partly used",
		paint(cellStyles[printer.CellFree], ".") + " free",
	}, "  ")
	return lipgloss.JoinVertical(lipgloss.Left, grid, legend)
}
