package alloc

import (
	"github.com/joshuapare/blockheap/heap/dirty"
	"github.com/joshuapare/blockheap/internal/spin"
)

// Option configures an Allocator.
type Option func(*Allocator)

// WithMasker masks the preempting interrupt source around the critical section.
func WithMasker(m spin.Masker) Option {
	return func(a *Allocator) { a.lock = spin.New(m) }
}

// WithDirtyTracker reports every write into the arena to dt.
func WithDirtyTracker(dt dirty.DirtyTracker) Option {
	return func(a *Allocator) { a.dt = dt }
}
