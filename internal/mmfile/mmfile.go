// Package mmfile maps heap image files read-only for offline inspection.
package mmfile

import "errors"

// ErrSize is returned when an image is not the expected length.
var ErrSize = errors.New("mmfile: image size mismatch")

// Image is a read-only view of an image file.
type Image struct {
	data    []byte
	release func([]byte) error
}

// Bytes returns the image contents. The slice must not be written and is
// invalid after Close.
func (im *Image) Bytes() []byte { return im.data }

// Close releases the view. Calling it twice is a no-op.
func (im *Image) Close() error {
	if im == nil || im.data == nil {
		return nil
	}
	data := im.data
	im.data = nil
	if im.release == nil {
		return nil
	}
	return im.release(data)
}
