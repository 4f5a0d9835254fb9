package selftest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/blockheap/heap/alloc"
	"github.com/joshuapare/blockheap/internal/testutil"
)

func newAllocator(t *testing.T) *alloc.Allocator {
	t.Helper()
	a, _ := testutil.NewAllocator(t, testutil.ReferenceConfig)
	return a
}

func TestEachDriverPassesAndCleansUp(t *testing.T) {
	for _, tc := range All() {
		t.Run(tc.Name, func(t *testing.T) {
			a := newAllocator(t)
			before := a.Snapshot()
			require.NoError(t, Run(a, tc.Name))
			require.Equal(t, before, a.Snapshot())
			require.Zero(t, a.Allocated())
			require.False(t, a.CheckCorruption().Corrupted)
		})
	}
}

func TestRunAll(t *testing.T) {
	a := newAllocator(t)
	require.NoError(t, Run(a, "all"))
	require.Zero(t, a.Allocated())
}

func TestRunAllOnBusyHeap(t *testing.T) {
	a := newAllocator(t)
	for range 7 {
		_, err := a.AllocBlocks(3)
		require.NoError(t, err)
	}
	require.NoError(t, Run(a, "all"))
	require.Equal(t, int64(21), a.Allocated())
}

func TestRunUnknown(t *testing.T) {
	a := newAllocator(t)
	err := Run(a, "nope")
	require.ErrorIs(t, err, ErrUnknown)
	require.Contains(t, err.Error(), "single, stress, boundary, multi, corruption")
}

func TestCorruptionFailsOnDamagedHeap(t *testing.T) {
	a := newAllocator(t)
	addr, err := a.AllocBlock()
	require.NoError(t, err)
	span, err := a.Span(addr, 1)
	require.NoError(t, err)
	span[0] ^= 0xFF

	err = Run(a, "corruption")
	require.ErrorIs(t, err, ErrFailed)
}
