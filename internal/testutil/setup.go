// Package testutil builds heaps and heap images for tests.
package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/alloc"
	"github.com/joshuapare/blockheap/heap/dirty"
)

// NewAllocator formats a heap over a plain byte slice and returns the
// allocator and the slice, which tests may read or damage directly.
//
// Example:
//
//	a, data := testutil.NewAllocator(t, testutil.SmallConfig)
//	data[64] ^= 0xFF // break the first payload block's start canary
func NewAllocator(t testing.TB, cfg heap.Config, opts ...alloc.Option) (*alloc.Allocator, []byte) {
	t.Helper()
	data := make([]byte, cfg.Size)
	r, err := heap.FromBytes(data, cfg)
	if err != nil {
		t.Fatalf("Failed to wrap region: %v", err)
	}
	a, err := alloc.New(r, opts...)
	if err != nil {
		t.Fatalf("Failed to format heap: %v", err)
	}
	return a, data
}

// SetupImage creates and formats an image file in a temp directory and
// returns the allocator, its dirty tracker, and the image path. The region
// is closed when the test ends.
//
// Example:
//
//	a, dt, path := testutil.SetupImage(t, testutil.SmallConfig)
//	a.AllocBlocks(4)
//	dt.Flush(ctx)
func SetupImage(t testing.TB, cfg heap.Config) (*alloc.Allocator, *dirty.Tracker, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ImageName)
	r, err := heap.OpenImage(path, cfg)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })

	dt := dirty.NewTracker(r)
	a, err := alloc.New(r, alloc.WithDirtyTracker(dt))
	if err != nil {
		t.Fatalf("Failed to format image: %v", err)
	}
	return a, dt, path
}

// CopyImage copies an image to a new file in a temp directory so a test can
// damage it without touching the original.
func CopyImage(t testing.TB, src string) string {
	t.Helper()
	dst := filepath.Join(t.TempDir(), "copy-"+filepath.Base(src))

	srcFile, err := os.Open(src)
	if err != nil {
		t.Fatalf("Failed to open image: %v", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		t.Fatalf("Failed to create image copy: %v", err)
	}
	defer dstFile.Close()

	if _, copyErr := io.Copy(dstFile, srcFile); copyErr != nil {
		t.Fatalf("Failed to copy image: %v", copyErr)
	}
	return dst
}
