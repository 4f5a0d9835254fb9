package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/alloc"
	"github.com/joshuapare/blockheap/heap/dirty"
	"github.com/joshuapare/blockheap/internal/buf"
	"github.com/joshuapare/blockheap/internal/logger"
)

// session is a heap opened for one command: an in-memory heap, or an image
// file that is formatted on first use and flushed on close.
type session struct {
	r  *heap.Region
	a  *alloc.Allocator
	dt *dirty.Tracker
}

func openSession() (*session, error) {
	cfg := config()
	if imagePath == "" {
		r, err := heap.New(cfg)
		if err != nil {
			return nil, err
		}
		a, err := alloc.New(r)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		logger.Debug("in-memory heap", "size", cfg.Size, "block_size", cfg.BlockSize)
		return &session{r: r, a: a}, nil
	}

	r, err := heap.OpenImage(imagePath, cfg)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", imagePath, err)
	}
	s := &session{r: r, dt: dirty.NewTracker(r)}
	s.a, err = alloc.Attach(r, alloc.WithDirtyTracker(s.dt))
	if errors.Is(err, alloc.ErrNotFormatted) && buf.IsZero(r.BitmapBytes()) {
		logger.Debug("formatting image", "path", imagePath)
		s.a, err = alloc.New(r, alloc.WithDirtyTracker(s.dt))
	}
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("image %s: %w", imagePath, err)
	}
	logger.Debug("image attached", "path", imagePath, "allocated", s.a.Allocated())
	return s, nil
}

// Close flushes an image's dirty ranges and releases the region.
func (s *session) Close() error {
	var err error
	if s.dt != nil {
		logger.Debug("flushing image", "ranges", s.dt.Len())
		err = s.dt.Flush(context.Background())
	}
	return errors.Join(err, s.r.Close())
}

// parseAddr accepts a region offset in decimal or 0x hex, or a physical
// address at or above --base.
func parseAddr(s string) (heap.Addr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	if heapBase != 0 && v >= heapBase {
		v -= heapBase
	}
	if v > uint64(heap.MaxSize) {
		return 0, fmt.Errorf("address %q out of range", s)
	}
	return heap.Addr(v), nil
}

func parseCount(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad block count %q", s)
	}
	return uint32(v), nil
}
