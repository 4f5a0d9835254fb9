// Package printer renders heap statistics, corruption reports, relocation
// lists, occupancy maps and payload dumps as text or JSON.
package printer

import (
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format specifies the output format.
type Format string

const (
	// FormatText outputs human-readable text.
	FormatText Format = "text"

	// FormatJSON outputs one JSON document per call.
	FormatJSON Format = "json"
)

const (
	DefaultMapWidth = 64
	DefaultMapRows  = 16
)

// Options controls printing.
type Options struct {
	// Format selects text or JSON output.
	// Default: FormatText
	Format Format

	// Lang selects number formatting for text output.
	// Default: language.English (thousands separated with commas)
	Lang language.Tag

	// Base is added to addresses in text output, so they read as physical
	// addresses. Default: 0 (region offsets)
	Base uint64
}

// DefaultOptions returns text output with English number formatting.
func DefaultOptions() Options {
	return Options{Format: FormatText, Lang: language.English}
}

// Printer writes formatted heap data to a writer.
type Printer struct {
	opts Options
	w    io.Writer
	num  *message.Printer
}

// New creates a Printer writing to w.
func New(w io.Writer, opts Options) *Printer {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if opts.Lang == language.Und {
		opts.Lang = language.English
	}
	return &Printer{opts: opts, w: w, num: message.NewPrinter(opts.Lang)}
}

// JSON reports whether the printer emits JSON.
func (p *Printer) JSON() bool { return p.opts.Format == FormatJSON }

func (p *Printer) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.w, "%s\n", data)
	return err
}

// printf formats through the locale-aware printer.
func (p *Printer) printf(format string, args ...any) {
	p.num.Fprintf(p.w, format, args...)
}

func (p *Printer) addr(off uint32) string {
	return fmt.Sprintf("0x%08X", p.opts.Base+uint64(off))
}

// JSONValue writes v as an indented JSON document.
func (p *Printer) JSONValue(v any) error { return p.writeJSON(v) }
