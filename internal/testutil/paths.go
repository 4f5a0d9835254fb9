package testutil

import "github.com/joshuapare/blockheap/heap"

// Geometries shared by tests. Use these instead of spelling out sizes.
var (
	// SmallConfig is 256 blocks of 64 bytes: one reserved block, 255 payload blocks.
	SmallConfig = heap.Config{Size: 64 * 256, BlockSize: 64}

	// ReferenceConfig is the 4 MiB reference geometry: 65536 blocks, 128 reserved.
	ReferenceConfig = heap.DefaultConfig
)

// ImageName is the file name used for images created in a test's temp dir.
const ImageName = "heap.img"
