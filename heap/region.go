package heap

import (
	"fmt"
	"os"
)

// Region is a heap arena, backed by anonymous memory, a mapped image file, or
// a caller-supplied buffer.
type Region struct {
	cfg      Config
	data     []byte
	total    uint32
	reserved uint32

	f       *os.File
	release func([]byte) error
}

// FromBytes wraps data as a region with the given geometry. The region does not
// own data; Close only detaches it.
func FromBytes(data []byte, cfg Config) (*Region, error) {
	return newRegion(data, cfg, nil, nil)
}

func newRegion(data []byte, cfg Config, f *os.File, release func([]byte) error) (*Region, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(data) != cfg.Size {
		return nil, fmt.Errorf("%w: backing store is %d bytes, configured size is %d",
			ErrBadConfig, len(data), cfg.Size)
	}
	total := cfg.TotalBlocks()
	if cfg.BitmapBytes()*8 != int(total) {
		return nil, fmt.Errorf("%w: bitmap of %d bytes cannot describe %d blocks",
			ErrBadConfig, cfg.BitmapBytes(), total)
	}
	return &Region{
		cfg:      cfg,
		data:     data,
		total:    total,
		reserved: cfg.ReservedBlocks(),
		f:        f,
		release:  release,
	}, nil
}

// Config returns the region geometry.
func (r *Region) Config() Config { return r.cfg }

// Bytes returns the whole arena, bitmap included.
func (r *Region) Bytes() []byte { return r.data }

// Size returns the arena size in bytes.
func (r *Region) Size() int { return len(r.data) }

// BlockSize returns the allocation granule.
func (r *Region) BlockSize() int { return r.cfg.BlockSize }

// TotalBlocks returns the number of blocks in the region, reserved ones included.
func (r *Region) TotalBlocks() uint32 { return r.total }

// ReservedBlocks returns the number of blocks that hold the bitmap.
func (r *Region) ReservedBlocks() uint32 { return r.reserved }

// PayloadBlocks returns the number of allocatable blocks.
func (r *Region) PayloadBlocks() uint32 { return r.total - r.reserved }

// BitmapBytes returns the bitmap slice at the start of the arena.
func (r *Region) BitmapBytes() []byte { return r.data[:r.cfg.BitmapBytes()] }

// Span returns the bytes of count blocks starting at block index first.
// The caller must have validated the span.
func (r *Region) Span(first, count uint32) []byte {
	bs := uint64(r.cfg.BlockSize)
	start := uint64(first) * bs
	return r.data[start : start+uint64(count)*bs]
}

// FD returns the image file descriptor, or -1 for anonymous and wrapped regions.
func (r *Region) FD() int {
	if r == nil || r.f == nil {
		return -1
	}
	return int(r.f.Fd())
}

// Backed reports whether the region is backed by an image file.
func (r *Region) Backed() bool { return r != nil && r.f != nil }

// Close releases the backing store. The region must not be used afterwards.
func (r *Region) Close() error {
	if r == nil {
		return nil
	}
	var err error
	if r.release != nil && r.data != nil {
		err = r.release(r.data)
	}
	r.data = nil
	if r.f != nil {
		if cerr := r.f.Close(); err == nil {
			err = cerr
		}
		r.f = nil
	}
	return err
}
