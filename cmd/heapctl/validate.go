package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/blockheap/heap/verify"
	"github.com/joshuapare/blockheap/internal/mmfile"
)

var validateStrict bool

func init() {
	cmd := &cobra.Command{
		Use:   "validate <image>",
		Short: "Validate a heap image's structural invariants",
		Long: `The validate command checks that an image has the configured size, that
the bitmap reserves its own blocks, and that every allocated run carries
intact canaries. --strict also requires every free block to be zeroed.

Example:
  heapctl validate heap.img
  heapctl validate heap.img --strict --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args[0])
		},
	}
	cmd.Flags().BoolVar(&validateStrict, "strict", false, "Also require free blocks to be zeroed")
	rootCmd.AddCommand(cmd)
}

func runValidate(path string) error {
	cfg := config()
	im, err := mmfile.Open(path, 0)
	if err != nil {
		return err
	}
	defer im.Close()

	err = verify.AllInvariants(im.Bytes(), cfg)
	if err == nil && validateStrict {
		err = verify.FreeBlocksZeroed(im.Bytes(), cfg)
	}

	result := map[string]any{
		"file":   path,
		"strict": validateStrict,
		"valid":  err == nil,
	}
	var verr *verify.ValidationError
	if errors.As(err, &verr) {
		result["check"] = verr.Type
		result["block"] = verr.Block
		result["error"] = verr.Message
	} else if err != nil {
		result["error"] = err.Error()
	}

	if jsonOut {
		if jerr := printJSON(result); jerr != nil {
			return jerr
		}
	} else {
		printInfo("Validating %s...\n", imageLabel(path))
		if err == nil {
			printInfo("%s all invariants hold\n", paint(okStyle, "OK"))
		} else {
			printInfo("%s %v\n", paint(badStyle, "INVALID"), err)
		}
	}
	if err != nil {
		return errInvalid
	}
	return nil
}

// errInvalid makes validate exit non-zero.
var errInvalid = errors.New("image invalid")

func imageLabel(path string) string {
	return fmt.Sprintf("%s (%s)", path, paint(headerStyle, "read-only"))
}
