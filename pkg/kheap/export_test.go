package kheap

// reset drops the process allocator so each test can Init again.
func reset() {
	initMu.Lock()
	defer initMu.Unlock()
	if a := current.Swap(nil); a != nil {
		_ = a.Region().Close()
	}
}
