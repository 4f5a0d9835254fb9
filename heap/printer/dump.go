package printer

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

const dumpWidth = 16

// Dump prints data as hex with a code page 437 glyph column, the character
// set of a VGA text console. off is the region offset of data[0].
func (p *Printer) Dump(off uint32, data []byte) error {
	if p.JSON() {
		return p.writeJSON(struct {
			Addr string `json:"addr"`
			Data []byte `json:"data"`
		}{p.addr(off), data})
	}
	var hex, text strings.Builder
	for row := 0; row < len(data); row += dumpWidth {
		line := data[row:min(row+dumpWidth, len(data))]
		hex.Reset()
		text.Reset()
		for i, b := range line {
			if i == dumpWidth/2 {
				hex.WriteByte(' ')
			}
			fmt.Fprintf(&hex, "%02x ", b)
			text.WriteRune(Glyph(b))
		}
		p.printf("%s  %-49s |%s|\n", p.addr(off+uint32(row)), hex.String(), text.String())
	}
	return nil
}

// Glyph returns the printable code page 437 character for b, or '.'.
func Glyph(b byte) rune {
	r := charmap.CodePage437.DecodeByte(b)
	if !unicode.IsPrint(r) {
		return '.'
	}
	return r
}
