//go:build !unix

package mmfile

import (
	"fmt"
	"os"
)

// Open reads the whole file where mmap is not available.
func Open(path string, size int) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || (size > 0 && len(data) != size) {
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrSize, path, len(data), size)
	}
	return &Image{data: data}, nil
}
