package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "Interactive heap shell",
		Long: `The shell command reads commands from stdin, one per line, against a
single heap. Type help for the command list.

Example:
  heapctl shell
  heapctl shell --image heap.img < script.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			runErr := runShell(newConsole(s.a, out()), cmd.InOrStdin(), isTerminal(cmd.InOrStdin()))
			return errors.Join(runErr, s.Close())
		},
	})
}

// runShell executes lines from in until EOF or quit. Command errors are
// printed and the shell carries on.
func runShell(c *console, in io.Reader, prompt bool) error {
	sc := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprint(c.w, "heap> ")
		}
		if !sc.Scan() {
			return sc.Err()
		}
		err := c.exec(sc.Text())
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			fmt.Fprintf(c.w, "%s %v\n", paint(badStyle, "error:"), err)
		}
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
