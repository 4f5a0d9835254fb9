//go:build darwin

package dirty

import "golang.org/x/sys/unix"

// msync flushes the whole mapping: macOS requires the address passed to msync
// to be the one mmap returned. Only dirty pages are written.
func msync(mapping []byte, _ []byte) error {
	return unix.Msync(mapping, unix.MS_SYNC)
}

// fdatasync syncs the image file, with F_FULLFSYNC when requested.
func fdatasync(fd int, fullfsync bool) error {
	if fullfsync {
		_, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
		return err
	}
	return unix.Fsync(fd)
}
