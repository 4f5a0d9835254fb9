package main

import (
	"runtime"

	"github.com/joshuapare/blockheap/heap"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	Platform  string `json:"platform"`
	HeapSize  int    `json:"default_heap_size"`
	BlockSize int    `json:"default_block_size"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and default heap geometry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := heap.DefaultConfig
		v := versionInfo{
			Version:   version,
			Commit:    commit,
			Built:     date,
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			HeapSize:  cfg.Size,
			BlockSize: cfg.BlockSize,
		}
		if jsonOut {
			return printJSON(v)
		}
		printInfo("heapctl %s\n", v.Version)
		printInfo("  commit:   %s\n", v.Commit)
		printInfo("  built:    %s\n", v.Built)
		printInfo("  platform: %s\n", v.Platform)
		printInfo("  default:  %d bytes in %d-byte blocks\n", v.HeapSize, v.BlockSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
