package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// smallArgs selects a 16 KiB heap: 256 blocks, one reserved.
var smallArgs = []string{"--size", "16384", "--block-size", "64", "--no-color"}

// resetFlags restores every flag to its default between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI runs heapctl with args and returns what it wrote to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(imageEnv, "")
	resetFlags(rootCmd)
	imagePath = ""

	var out, errOut bytes.Buffer
	stdout, stderr = &out, &errOut
	t.Cleanup(func() { stdout, stderr = os.Stdout, os.Stderr })

	rootCmd.SetArgs(append(append([]string{}, args...), smallArgs...))
	rootCmd.SetIn(strings.NewReader(""))
	err := rootCmd.Execute()
	return out.String(), err
}

// runShellInput runs the shell command with input on stdin.
func runShellInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(imageEnv, "")
	resetFlags(rootCmd)
	imagePath = ""

	var out bytes.Buffer
	stdout, stderr = &out, &out
	t.Cleanup(func() { stdout, stderr = os.Stdout, os.Stderr })

	rootCmd.SetArgs(append(append([]string{"shell"}, args...), smallArgs...))
	rootCmd.SetIn(strings.NewReader(input))
	err := rootCmd.Execute()
	return out.String(), err
}

func imageFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "heap.img")
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) map[string]any {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &result), "output: %s", output)
	return result
}
