package compact

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/bitmap"
	"github.com/joshuapare/blockheap/heap/guard"
)

var testCfg = heap.Config{Size: 64 * 64, BlockSize: 64}

type recorder struct{ adds [][2]int }

func (r *recorder) Add(off, length int) { r.adds = append(r.adds, [2]int{off, length}) }

func newHeap(t *testing.T) (*heap.Region, bitmap.Bitmap) {
	t.Helper()
	r, err := heap.FromBytes(make([]byte, testCfg.Size), testCfg)
	require.NoError(t, err)
	bm := bitmap.New(r.BitmapBytes(), r.TotalBlocks())
	bm.SetRange(0, r.ReservedBlocks())
	return r, bm
}

func place(r *heap.Region, bm bitmap.Bitmap, first, count uint32, fill byte) heap.Addr {
	a, _ := r.BlockToAddr(first)
	span := r.Span(first, count)
	for i := range span {
		span[i] = fill
	}
	bm.SetRange(first, count)
	guard.Stamp(r, a, count)
	return a
}

func TestCompactAlreadyCompact(t *testing.T) {
	r, bm := newHeap(t)
	place(r, bm, 1, 3, 0xAA)
	place(r, bm, 4, 1, 0xBB)

	res := Compact(r, bm, nil)
	require.Equal(t, uint32(0), res.Moved)
	require.Equal(t, uint32(5), res.Frontier)
	require.Empty(t, res.Relocations)
}

func TestCompactSlidesRunsDown(t *testing.T) {
	r, bm := newHeap(t)
	a := place(r, bm, 3, 2, 0xAA)
	b := place(r, bm, 10, 4, 0xBB)
	rec := &recorder{}

	res := Compact(r, bm, rec)
	require.Equal(t, uint32(6), res.Moved)
	require.Equal(t, uint32(7), res.Frontier)
	require.Equal(t, []Relocation{
		{From: a, To: 64, Blocks: 2},
		{From: b, To: 3 * 64, Blocks: 4},
	}, res.Relocations)

	require.True(t, bm.AllSet(0, 7))
	n, ok := bm.NextSet(7, bm.Len())
	require.False(t, ok, "stray bit %d", n)

	require.True(t, guard.Verify(r, 64, 2))
	require.True(t, guard.Verify(r, 3*64, 4))
	require.Equal(t, byte(0xAA), r.Bytes()[64+8])
	require.Equal(t, byte(0xBB), r.Bytes()[3*64+8])
	for _, by := range r.Span(7, r.TotalBlocks()-7) {
		require.Zero(t, by)
	}
	require.NotEmpty(t, rec.adds)
}

func TestCompactOverlappingMove(t *testing.T) {
	r, bm := newHeap(t)
	a := place(r, bm, 2, 6, 0xCC)

	res := Compact(r, bm, nil)
	require.Equal(t, uint32(6), res.Moved)
	require.True(t, guard.Verify(r, 64, 6))
	for _, by := range r.Span(1, 6)[8 : 6*64-8] {
		require.Equal(t, byte(0xCC), by)
	}
	require.False(t, bm.Test(7))
	require.Zero(t, r.Span(7, 1)[0])

	to, ok := res.Translate(a + 100)
	require.True(t, ok)
	require.Equal(t, heap.Addr(64+100), to)
	_, ok = res.Translate(0)
	require.False(t, ok)
}
