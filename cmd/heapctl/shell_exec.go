package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/alloc"
	"github.com/joshuapare/blockheap/heap/bitmap"
	"github.com/joshuapare/blockheap/heap/guard"
	"github.com/joshuapare/blockheap/heap/printer"
	"github.com/joshuapare/blockheap/heap/selftest"
	"github.com/joshuapare/blockheap/internal/logger"
)

var (
	// errQuit ends an interactive shell.
	errQuit = errors.New("quit")

	// errCorrupted makes check exit non-zero when the scan finds damage.
	errCorrupted = errors.New("heap corrupted")
)

// console runs shell command lines against one allocator.
type console struct {
	a *alloc.Allocator
	p *printer.Printer
	w io.Writer
}

func newConsole(a *alloc.Allocator, w io.Writer) *console {
	opts := printer.DefaultOptions()
	opts.Base = heapBase
	if jsonOut {
		opts.Format = printer.FormatJSON
	}
	return &console{a: a, p: printer.New(w, opts), w: w}
}

const shellHelp = `commands:
  alloc [N]            allocate N contiguous blocks (default 1)
  free ADDR [N]        free N blocks at ADDR (default 1)
  write ADDR OFF HEX   write bytes into the payload of the block at ADDR
  read ADDR [OFF] [N]  dump N payload bytes (default the whole first block)
  stats                usage and fragmentation
  check                corruption scan
  defrag               compact allocations, list relocations
  map                  occupancy map
  test [NAME|all]      run acceptance drivers (` + "single, stress, boundary, multi, corruption" + `)
  help                 this text
  quit                 leave the shell
`

// exec runs one command line.
func (c *console) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	logger.Debug("shell", "cmd", cmd, "args", args)

	switch cmd {
	case "alloc":
		return c.alloc(args)
	case "free":
		return c.free(args)
	case "write":
		return c.write(args)
	case "read":
		return c.read(args)
	case "stats":
		return c.p.Stats(c.a.Stats())
	case "check":
		return c.check()
	case "defrag":
		return c.p.Defrag(c.a.DefragmentWithRelocations())
	case "map":
		return c.drawMap(printer.DefaultMapWidth, printer.DefaultMapRows)
	case "test":
		name := "all"
		if len(args) > 0 {
			name = args[0]
		}
		return c.test(name)
	case "help", "?":
		_, err := io.WriteString(c.w, shellHelp)
		return err
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (c *console) alloc(args []string) error {
	n := uint32(1)
	if len(args) > 0 {
		var err error
		if n, err = parseCount(args[0]); err != nil {
			return err
		}
	}
	var addr heap.Addr
	var err error
	if n == 1 {
		addr, err = c.a.AllocBlock()
	} else {
		addr, err = c.a.AllocBlocks(n)
	}
	if err != nil {
		return err
	}
	if c.p.JSON() {
		return c.json(map[string]any{"addr": uint32(addr), "phys": c.a.Region().Phys(addr), "blocks": n})
	}
	fmt.Fprintf(c.w, "%s (phys 0x%08X) %d blocks\n", addr, c.a.Region().Phys(addr), n)
	return nil
}

func (c *console) free(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: free ADDR [N]")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	n := uint32(1)
	if len(args) > 1 {
		if n, err = parseCount(args[1]); err != nil {
			return err
		}
	}
	if err := c.a.FreeBlocks(addr, n); err != nil {
		return err
	}
	if c.p.JSON() {
		return c.json(map[string]any{"freed": uint32(addr), "blocks": n})
	}
	fmt.Fprintf(c.w, "freed %d blocks at %s\n", n, addr)
	return nil
}

// payload returns the payload of the single block at addr, which must be
// allocated.
func (c *console) payload(addr heap.Addr) ([]byte, error) {
	if !c.a.IsAllocated(addr) {
		return nil, fmt.Errorf("%s is not allocated", addr)
	}
	return c.a.Payload(addr, 1)
}

func (c *console) write(args []string) error {
	if len(args) != 3 {
		return errors.New("usage: write ADDR OFF HEX")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	off, err := parseCount(args[1])
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(strings.TrimPrefix(args[2], "0x"))
	if err != nil {
		return fmt.Errorf("bad hex %q", args[2])
	}
	p, err := c.payload(addr)
	if err != nil {
		return err
	}
	if int(off)+len(data) > len(p) {
		return fmt.Errorf("write of %d bytes at %d overruns %d-byte payload", len(data), off, len(p))
	}
	copy(p[off:], data)
	fmt.Fprintf(c.w, "wrote %d bytes\n", len(data))
	return nil
}

func (c *console) read(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: read ADDR [OFF] [N]")
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	p, err := c.payload(addr)
	if err != nil {
		return err
	}
	var off uint32
	if len(args) > 1 {
		if off, err = parseCount(args[1]); err != nil {
			return err
		}
	}
	if off > uint32(len(p)) {
		return fmt.Errorf("offset %d past %d-byte payload", off, len(p))
	}
	n := uint32(len(p)) - off
	if len(args) > 2 {
		want, err := parseCount(args[2])
		if err != nil {
			return err
		}
		n = min(n, want)
	}
	return c.p.Dump(uint32(addr)+guard.WordSize+off, p[off:off+n])
}

func (c *console) check() error {
	rep := c.a.CheckCorruption()
	if err := c.p.Report(rep); err != nil {
		return err
	}
	if rep.Corrupted {
		return errCorrupted
	}
	return nil
}

func (c *console) drawMap(width, rows int) error {
	occ := printer.Map(bitmap.New(c.a.Snapshot(), c.a.Region().TotalBlocks()),
		c.a.Region().ReservedBlocks(), width, rows)
	if c.p.JSON() {
		return c.p.Map(occ)
	}
	fmt.Fprintf(c.w, "%s\n%s\n",
		paint(headerStyle, fmt.Sprintf("%d blocks per cell", occ.BlocksPerCell)),
		renderMap(occ))
	return nil
}

func (c *console) test(name string) error {
	err := selftest.Run(c.a, name)
	result := "PASS"
	style := okStyle
	if err != nil {
		result, style = "FAIL", badStyle
	}
	if c.p.JSON() {
		out := map[string]any{"test": name, "pass": err == nil}
		if err != nil {
			out["error"] = err.Error()
		}
		if jerr := c.json(out); jerr != nil {
			return jerr
		}
		return err
	}
	fmt.Fprintf(c.w, "%s %s\n", paint(style, result), name)
	return err
}

func (c *console) json(v any) error {
	return c.p.JSONValue(v)
}
