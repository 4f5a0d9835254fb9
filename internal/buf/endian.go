// Package buf contains bounds-checked helpers for reading and writing words in
// the heap arena.
package buf

import "encoding/binary"

// U32LE reads a little-endian uint32 from b. Returns 0 when b is too short.
func U32LE(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// PutU32LE writes v little-endian into b. It is a no-op when b is too short.
func PutU32LE(b []byte, v uint32) {
	if len(b) < 4 {
		return
	}
	binary.LittleEndian.PutUint32(b, v)
}

// U32At reads the little-endian word at b[off:off+4]. ok is false when the
// word does not fit.
func U32At(b []byte, off int) (uint32, bool) {
	w := word(b, off)
	if w == nil {
		return 0, false
	}
	return binary.LittleEndian.Uint32(w), true
}

// PutU32At writes v at b[off:off+4] and reports whether it fit.
func PutU32At(b []byte, off int, v uint32) bool {
	w := word(b, off)
	if w == nil {
		return false
	}
	binary.LittleEndian.PutUint32(w, v)
	return true
}

// IsZero reports whether every byte of b is zero.
func IsZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
