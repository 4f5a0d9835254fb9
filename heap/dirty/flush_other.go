//go:build !linux && !freebsd && !darwin

package dirty

// msync is a no-op: on these platforms images are either written back when the
// region is closed or flushed by the kernel when the mapping is released.
func msync(_ []byte, _ []byte) error { return nil }

func fdatasync(_ int, _ bool) error { return nil }
