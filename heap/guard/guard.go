// Package guard writes and checks the canary words that bracket every live
// allocation, and scans the whole heap for corruption.
//
// Each live span carries StartMagic in its first four bytes and EndMagic in its
// last four bytes, little-endian. A freed span is cleared to zero, which is
// distinct from both values.
package guard

import (
	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/internal/buf"
)

const (
	// StartMagic marks the first word of a live span.
	StartMagic uint32 = 0xA110C8ED

	// EndMagic marks the last word of a live span.
	EndMagic uint32 = 0x5AFE7A11

	// WordSize is the size of one canary word.
	WordSize = 4

	// Overhead is the number of span bytes taken by the two canaries.
	Overhead = 2 * WordSize
)

// Stamp writes both canaries for count blocks at a. The span must already
// have been validated by the caller.
func Stamp(r *heap.Region, a heap.Addr, count uint32) {
	data := r.Bytes()
	buf.PutU32At(data, startOff(a), StartMagic)
	buf.PutU32At(data, endOff(r, a, count), EndMagic)
}

// Verify reports whether both canaries of the span are intact.
func Verify(r *heap.Region, a heap.Addr, count uint32) bool {
	start, end := Check(r, a, count)
	return start && end
}

// Check reports the state of each canary separately.
func Check(r *heap.Region, a heap.Addr, count uint32) (startOK, endOK bool) {
	data := r.Bytes()
	s, ok := buf.U32At(data, startOff(a))
	startOK = ok && s == StartMagic
	e, ok := buf.U32At(data, endOff(r, a, count))
	endOK = ok && e == EndMagic
	return startOK, endOK
}

// StartWord returns the first word of block i.
func StartWord(r *heap.Region, i uint32) uint32 {
	w, _ := buf.U32At(r.Bytes(), int(i)*r.BlockSize())
	return w
}

// EndWord returns the last word of block i.
func EndWord(r *heap.Region, i uint32) uint32 {
	w, _ := buf.U32At(r.Bytes(), (int(i)+1)*r.BlockSize()-WordSize)
	return w
}

func startOff(a heap.Addr) int { return int(a) }

func endOff(r *heap.Region, a heap.Addr, count uint32) int {
	return int(a) + int(count)*r.BlockSize() - WordSize
}
