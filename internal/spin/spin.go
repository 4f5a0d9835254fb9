// Package spin provides the allocator's critical section: an optional
// interrupt mask followed by a non-blocking spinlock.
//
// The lock never parks the caller on a scheduler primitive. On hardware the
// Masker disables the preempting interrupt source before the lock is taken, so
// an interrupt-context caller can never spin on a lock held by the foreground
// code it preempted. Without a Masker the lock behaves as a plain spinlock.
package spin

import (
	"runtime"
	"sync/atomic"
)

// spinsBeforeYield bounds busy-waiting before handing the processor back.
const spinsBeforeYield = 64

// Masker disables and restores the interrupt source that can preempt the
// foreground. Mask returns the state Restore needs.
type Masker interface {
	Mask() uint64
	Restore(saved uint64)
}

type noMask struct{}

func (noMask) Mask() uint64     { return 0 }
func (noMask) Restore(_ uint64) {}

// Lock is a test-and-test-and-set spinlock. The zero value is unlocked and
// masks nothing.
type Lock struct {
	held atomic.Bool
	mask Masker
}

// New returns a lock that masks interrupts with m. A nil m masks nothing.
func New(m Masker) *Lock {
	if m == nil {
		m = noMask{}
	}
	return &Lock{mask: m}
}

// Acquire masks interrupts and spins until the lock is taken. The returned
// value must be passed to Release.
func (l *Lock) Acquire() uint64 {
	m := l.masker()
	saved := m.Mask()
	for spins := 0; ; spins++ {
		if !l.held.Load() && l.held.CompareAndSwap(false, true) {
			return saved
		}
		if spins >= spinsBeforeYield {
			runtime.Gosched()
			spins = 0
		}
	}
}

// TryAcquire takes the lock without spinning. ok is false when it is held.
func (l *Lock) TryAcquire() (saved uint64, ok bool) {
	m := l.masker()
	saved = m.Mask()
	if l.held.CompareAndSwap(false, true) {
		return saved, true
	}
	m.Restore(saved)
	return 0, false
}

// Release unlocks and restores the interrupt state saved by Acquire.
func (l *Lock) Release(saved uint64) {
	if !l.held.CompareAndSwap(true, false) {
		panic("spin: release of unlocked lock")
	}
	l.masker().Restore(saved)
}

func (l *Lock) masker() Masker {
	if l.mask == nil {
		return noMask{}
	}
	return l.mask
}
