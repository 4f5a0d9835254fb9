package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/guard"
	"github.com/joshuapare/blockheap/internal/buf"
)

// smallCfg is 256 blocks of 64 bytes: one reserved block, 255 payload blocks.
var smallCfg = heap.Config{Size: 64 * 256, BlockSize: 64}

func newTestAllocator(t *testing.T, cfg heap.Config, opts ...Option) *Allocator {
	t.Helper()
	r, err := heap.FromBytes(make([]byte, cfg.Size), cfg)
	require.NoError(t, err)
	a, err := New(r, opts...)
	require.NoError(t, err)
	return a
}

// reference returns an allocator over the 4 MiB, 64-byte reference geometry.
func reference(t *testing.T) *Allocator {
	t.Helper()
	return newTestAllocator(t, heap.DefaultConfig)
}

func wordAt(a *Allocator, addr heap.Addr, off int) uint32 {
	w, _ := buf.U32At(a.r.Bytes(), int(addr)+off)
	return w
}

func putWordAt(a *Allocator, addr heap.Addr, off int, v uint32) {
	buf.PutU32At(a.r.Bytes(), int(addr)+off, v)
}

// requireConsistent checks the bitmap against the counter and the canaries.
func requireConsistent(t *testing.T, a *Allocator) {
	t.Helper()
	rep := a.CheckCorruption()
	require.False(t, rep.Corrupted, rep.String())
	st := a.Stats()
	require.Equal(t, st.TotalBlocks, st.UsedBlocks+st.FreeBlocks)
	require.Equal(t, int64(st.UsedBlocks), a.Allocated())
}

func requireLive(t *testing.T, a *Allocator, addr heap.Addr, count uint32) {
	t.Helper()
	require.True(t, guard.Verify(a.r, addr, count), "canaries at %s", addr)
}
