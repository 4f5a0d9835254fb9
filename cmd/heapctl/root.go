package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/printer"
	"github.com/joshuapare/blockheap/internal/logger"
)

// imageEnv names the image file when --image is not given.
const imageEnv = "BLOCKHEAP_IMAGE"

var (
	// Global flags
	verbose   bool
	quiet     bool
	jsonOut   bool
	noColor   bool
	imagePath string
	heapSize  int
	blockSize int
	heapBase  uint64

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Drive and inspect a fixed-block bitmap heap",
	Long: `heapctl allocates, frees, checks and compacts blocks in a bitmap heap.
Without --image every command works on a fresh in-memory heap; with --image
(or BLOCKHEAP_IMAGE) the heap lives in a file and persists between runs.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if imagePath == "" {
			imagePath = os.Getenv(imageEnv)
		}
		return logger.Init(logger.Options{
			Enabled: verbose && !quiet,
			Level:   slog.LevelDebug,
			Writer:  stderr,
		})
	},
}

func init() {
	def := heap.DefaultConfig
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	pf.BoolVar(&jsonOut, "json", false, "Output in JSON format")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&imagePath, "image", "", "Heap image file (default $"+imageEnv+")")
	pf.IntVar(&heapSize, "size", def.Size, "Heap size in bytes")
	pf.IntVar(&blockSize, "block-size", def.BlockSize, "Block size in bytes")
	pf.Uint64Var(&heapBase, "base", def.Base, "Physical base address shown in output")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// config returns the geometry selected by the global flags.
func config() heap.Config {
	return heap.Config{Size: heapSize, BlockSize: blockSize, Base: heapBase}
}

// newPrinter returns a printer honouring --json and --base.
func newPrinter() *printer.Printer {
	opts := printer.DefaultOptions()
	opts.Base = heapBase
	if jsonOut {
		opts.Format = printer.FormatJSON
	}
	return printer.New(out(), opts)
}

// out is stdout, or a sink under --quiet.
func out() io.Writer {
	if quiet {
		return io.Discard
	}
	return stdout
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	fmt.Fprintf(out(), format, args...)
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(stderr, "Error: "+format, args...)
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	enc := json.NewEncoder(out())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
