//go:build !unix

package heap

import (
	"fmt"
	"os"
)

// New allocates a zero-filled region with the given geometry.
func New(cfg Config) (*Region, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newRegion(make([]byte, cfg.Size), cfg, nil, nil)
}

// OpenImage reads the image at path into memory, creating it when missing.
// The image is written back on Close.
func OpenImage(path string, cfg Config) (*Region, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		data = make([]byte, cfg.Size)
	case err != nil:
		return nil, err
	case len(data) != cfg.Size:
		return nil, fmt.Errorf("%w: image %s is %d bytes, configured size is %d",
			ErrBadConfig, path, len(data), cfg.Size)
	}
	writeBack := func(b []byte) error {
		return os.WriteFile(path, b, 0o600)
	}
	return newRegion(data, cfg, nil, writeBack)
}
