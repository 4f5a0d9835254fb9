// Package verify checks structural invariants of a heap image.
//
// # Overview
//
// The checks work on raw bytes plus the geometry they were formatted with, so
// they apply equally to a live region, a copy taken by a test, or an image file
// read from disk. They are used by the allocator tests and by
// "heapctl validate".
//
// Invariants checked:
//   - Size: the image length matches the geometry
//   - Reserved: every block holding the bitmap is marked allocated
//   - Canaries: every allocated run starts with StartMagic and ends with EndMagic
//   - CounterMatches: the bitmap population equals an allocator's counter
//   - FreeBlocksZeroed: every free payload block holds the clear pattern
//
// # Quick Start
//
//	data, _ := os.ReadFile("heap.img")
//	if err := verify.AllInvariants(data, heap.DefaultConfig); err != nil {
//	    fmt.Printf("validation failed: %v\n", err)
//	}
//
// FreeBlocksZeroed is not part of AllInvariants: an image written by something
// other than this allocator may legitimately leave garbage in free blocks.
//
// # ValidationError
//
// Every failure is a *ValidationError naming the check and, where one exists,
// the first offending block:
//
//	var verr *verify.ValidationError
//	if errors.As(err, &verr) {
//	    fmt.Println(verr.Type, verr.Block)
//	}
package verify
