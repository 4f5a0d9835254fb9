//go:build unix

package mmfile

import (
	"fmt"
	"os"
	"syscall"
)

// Open maps the file at path read-only. A size of zero accepts any non-empty
// file; otherwise the file must be exactly size bytes.
func Open(path string, size int) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() // the mapping outlives the descriptor

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	n := info.Size()
	if n == 0 || (size > 0 && n != int64(size)) {
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrSize, path, n, size)
	}
	if n > int64(^uint(0)>>1) {
		return nil, fmt.Errorf("mmfile: file too large to map (%d bytes)", n)
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(n), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmfile: map %s: %w", path, err)
	}
	return &Image{data: data, release: syscall.Munmap}, nil
}
