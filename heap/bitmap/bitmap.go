// Package bitmap implements the heap's occupancy table: one bit per block,
// packed LSB-first into bytes, bit 0 of byte 0 describing block 0.
//
// A Bitmap is a view over a byte slice it does not own. The heap keeps the
// slice at the start of its own arena, so every mutation here is a write into
// the region. Bitmap is not safe for concurrent use; the allocator serialises
// access inside its critical section.
package bitmap

import (
	"encoding/binary"
	"math/bits"
)

const allOnes = ^uint64(0)

// Bitmap is a fixed-length bit set over a borrowed byte slice.
type Bitmap struct {
	bits []byte
	n    uint32
}

// New returns a bitmap of n bits stored in b. b must hold at least n/8 bytes
// and n must be a multiple of 8.
func New(b []byte, n uint32) Bitmap {
	if n%8 != 0 || len(b) < int(n/8) {
		panic("bitmap: backing slice too short for bit count")
	}
	return Bitmap{bits: b[:n/8], n: n}
}

// Len returns the number of bits.
func (b Bitmap) Len() uint32 { return b.n }

// Bytes returns the backing bytes.
func (b Bitmap) Bytes() []byte { return b.bits }

// Test reports whether bit i is set.
func (b Bitmap) Test(i uint32) bool {
	return b.bits[i>>3]&(1<<(i&7)) != 0
}

// Set sets bit i.
func (b Bitmap) Set(i uint32) {
	b.bits[i>>3] |= 1 << (i & 7)
}

// Clear clears bit i.
func (b Bitmap) Clear(i uint32) {
	b.bits[i>>3] &^= 1 << (i & 7)
}

// SetRange sets bits [i, i+n).
func (b Bitmap) SetRange(i, n uint32) { b.fill(i, n, true) }

// ClearRange clears bits [i, i+n).
func (b Bitmap) ClearRange(i, n uint32) { b.fill(i, n, false) }

func (b Bitmap) fill(i, n uint32, set bool) {
	end := i + n
	for i < end {
		if i&7 == 0 && end-i >= 8 {
			if set {
				b.bits[i>>3] = 0xFF
			} else {
				b.bits[i>>3] = 0
			}
			i += 8
			continue
		}
		if set {
			b.Set(i)
		} else {
			b.Clear(i)
		}
		i++
	}
}

// AllSet reports whether every bit in [i, i+n) is set.
func (b Bitmap) AllSet(i, n uint32) bool {
	_, found := b.NextClear(i, i+n)
	return !found
}

// Reset clears every bit.
func (b Bitmap) Reset() {
	clear(b.bits)
}

// Count returns the number of set bits.
func (b Bitmap) Count() uint32 {
	var c int
	p := b.bits
	for len(p) >= 8 {
		c += bits.OnesCount64(binary.LittleEndian.Uint64(p))
		p = p[8:]
	}
	for _, by := range p {
		c += bits.OnesCount8(by)
	}
	return uint32(c)
}

// NextClear returns the first clear bit in [from, to).
func (b Bitmap) NextClear(from, to uint32) (uint32, bool) {
	return b.next(from, to, false)
}

// NextSet returns the first set bit in [from, to).
func (b Bitmap) NextSet(from, to uint32) (uint32, bool) {
	return b.next(from, to, true)
}

// next scans a word at a time when aligned, a byte at a time otherwise.
func (b Bitmap) next(from, to uint32, set bool) (uint32, bool) {
	if to > b.n {
		to = b.n
	}
	i := from
	for i < to {
		if i&63 == 0 && to-i >= 64 {
			w := binary.LittleEndian.Uint64(b.bits[i>>3:])
			if !set {
				w = ^w
			}
			if w == 0 {
				i += 64
				continue
			}
			return i + uint32(bits.TrailingZeros64(w)), true
		}
		if i&7 == 0 && to-i >= 8 {
			by := b.bits[i>>3]
			if !set {
				by = ^by
			}
			if by == 0 {
				i += 8
				continue
			}
			return i + uint32(bits.TrailingZeros8(by)), true
		}
		if b.Test(i) == set {
			return i, true
		}
		i++
	}
	return 0, false
}

// FindClearRun returns the start of the first run of n clear bits that lies
// entirely inside [from, to). Runs never wrap past to.
func (b Bitmap) FindClearRun(from, to, n uint32) (uint32, bool) {
	if n == 0 {
		return 0, false
	}
	if to > b.n {
		to = b.n
	}
	i := from
	for i < to {
		start, ok := b.NextClear(i, to)
		if !ok || uint64(start)+uint64(n) > uint64(to) {
			return 0, false
		}
		blocker, blocked := b.NextSet(start, start+n)
		if !blocked {
			return start, true
		}
		i = blocker + 1
	}
	return 0, false
}

// Run is a maximal stretch of bits sharing one state.
type Run struct {
	Start uint32
	Len   uint32
}

// End returns the first index past the run.
func (r Run) End() uint32 { return r.Start + r.Len }

// NextRun returns the first maximal run of bits equal to set that starts at
// or after from and ends at or before to.
func (b Bitmap) NextRun(from, to uint32, set bool) (Run, bool) {
	if to > b.n {
		to = b.n
	}
	start, ok := b.next(from, to, set)
	if !ok {
		return Run{}, false
	}
	end, ok := b.next(start, to, !set)
	if !ok {
		end = to
	}
	return Run{Start: start, Len: end - start}, true
}

// Runs calls fn for every maximal run of bits equal to set in [from, to), in
// ascending order, until fn returns false.
func (b Bitmap) Runs(from, to uint32, set bool, fn func(Run) bool) {
	for {
		r, ok := b.NextRun(from, to, set)
		if !ok || !fn(r) {
			return
		}
		from = r.End()
	}
}
