package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var (
	mapWidth int
	mapRows  int
)

func init() {
	mapCmd := newSessionCmd("map", "Show the block occupancy map",
		`The map command draws the heap as a grid of cells, each covering one or
more blocks, colored by state.

Example:
  heapctl map --image heap.img
  heapctl map --width 80 --rows 20`,
		cobra.NoArgs,
		func(c *console, _ []string) error { return c.drawMap(mapWidth, mapRows) })
	mapCmd.Flags().IntVar(&mapWidth, "width", 64, "Cells per row")
	mapCmd.Flags().IntVar(&mapRows, "rows", 16, "Maximum rows")

	rootCmd.AddCommand(
		newSessionCmd("stats", "Show usage and fragmentation",
			`The stats command recomputes usage, free runs and the fragmentation
percentage from the bitmap.

Example:
  heapctl stats --image heap.img
  heapctl stats --image heap.img --json`,
			cobra.NoArgs, shellArgs("stats")),
		newSessionCmd("check", "Scan the heap for corruption",
			`The check command verifies every allocated run's canaries and compares
the bitmap with the allocator's block counter. It exits non-zero when
corruption is found.

Example:
  heapctl check --image heap.img`,
			cobra.NoArgs, shellArgs("check")),
		newSessionCmd("defrag", "Compact allocations toward the heap start",
			`The defrag command slides every allocation down to close the gaps and
prints each relocation. Addresses held before the call are stale afterwards.

Example:
  heapctl defrag --image heap.img`,
			cobra.NoArgs, shellArgs("defrag")),
		newSessionCmd("alloc [count]", "Allocate contiguous blocks",
			`The alloc command allocates count contiguous blocks (default 1) and
prints the address of the first. Use --image to keep the allocation.

Example:
  heapctl alloc 4 --image heap.img`,
			cobra.MaximumNArgs(1), shellArgs("alloc")),
		newSessionCmd("free <addr> [count]", "Free blocks at an address",
			`The free command frees count blocks (default 1) at addr. Addresses are
region offsets, or physical addresses at or above --base.

Example:
  heapctl free 0x2000 4 --image heap.img`,
			cobra.RangeArgs(1, 2), shellArgs("free")),
		newSessionCmd("test [name]", "Run the acceptance self-tests",
			`The test command runs one acceptance driver, or all of them.

Drivers: `+"single, stress, boundary, multi, corruption"+`

Example:
  heapctl test
  heapctl test stress`,
			cobra.MaximumNArgs(1), shellArgs("test")),
		mapCmd,
	)
}

// newSessionCmd builds a command that opens a session, runs fn, and closes
// the session, flushing an image.
func newSessionCmd(use, short, long string, args cobra.PositionalArgs,
	fn func(c *console, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			runErr := fn(newConsole(s.a, out()), args)
			return errors.Join(runErr, s.Close())
		},
	}
}

// shellArgs runs the shell command name with the positional arguments.
func shellArgs(name string) func(c *console, args []string) error {
	return func(c *console, args []string) error {
		return c.exec(name + " " + strings.Join(args, " "))
	}
}
