//go:build linux || freebsd

package dirty

import "golang.org/x/sys/unix"

// msync flushes part of the mapping. Linux and FreeBSD accept sub-slices as
// long as they start on a page boundary, which coalesced ranges always do.
func msync(_ []byte, part []byte) error {
	return unix.Msync(part, unix.MS_SYNC)
}

// fdatasync syncs the image file. fullfsync is ignored here.
func fdatasync(fd int, _ bool) error {
	return unix.Fdatasync(fd)
}
