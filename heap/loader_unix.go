//go:build unix

package heap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// New maps an anonymous, zero-filled region with the given geometry.
func New(cfg Config) (*Region, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	data, err := unix.Mmap(-1, 0, cfg.Size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("heap: mmap %d bytes: %w", cfg.Size, err)
	}
	r, err := newRegion(data, cfg, nil, unix.Munmap)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, err
	}
	return r, nil
}

// OpenImage maps the image file at path read-write and shared, creating it
// zero-filled at cfg.Size bytes when it does not exist. Writes to the region
// reach the file once flushed (see heap/dirty).
func OpenImage(path string, cfg Config) (*Region, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	switch {
	case st.Size() == 0:
		if err := f.Truncate(int64(cfg.Size)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("heap: size image: %w", err)
		}
	case st.Size() != int64(cfg.Size):
		_ = f.Close()
		return nil, fmt.Errorf("%w: image %s is %d bytes, configured size is %d",
			ErrBadConfig, path, st.Size(), cfg.Size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, cfg.Size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("heap: mmap image: %w", err)
	}
	r, err := newRegion(data, cfg, f, unix.Munmap)
	if err != nil {
		_ = unix.Munmap(data)
		_ = f.Close()
		return nil, err
	}
	return r, nil
}
