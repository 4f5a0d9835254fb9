package dirty

// DirtyTracker is the minimal interface for components that write into the
// heap arena and need to report which bytes changed.
type DirtyTracker interface {
	// Add marks length bytes at off (from the start of the region) as dirty.
	Add(off, length int)
}

// AddBits marks the bitmap bytes holding bits [first, first+count) dirty. The
// bitmap starts at offset 0 of the region.
func AddBits(dt DirtyTracker, first, count uint32) {
	if dt == nil || count == 0 {
		return
	}
	lo := int(first / 8)
	hi := int((first + count + 7) / 8)
	dt.Add(lo, hi-lo)
}
