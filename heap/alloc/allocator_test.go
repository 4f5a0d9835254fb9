package alloc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/blockheap/heap"
	"github.com/joshuapare/blockheap/heap/guard"
)

func TestNewReservesBitmapBlocks(t *testing.T) {
	a := reference(t)
	require.Equal(t, uint32(65536), a.r.TotalBlocks())
	require.Equal(t, uint32(128), a.r.ReservedBlocks())
	require.True(t, a.bm.AllSet(0, 128))
	require.False(t, a.bm.Test(128))
	require.Equal(t, int64(0), a.Allocated())
	require.Equal(t, uint32(128), a.Hint())

	st := a.Stats()
	require.Equal(t, uint32(65408), st.TotalBlocks)
	require.Equal(t, uint32(0), st.UsedBlocks)
	require.Equal(t, uint64(65408*64), st.LargestFreeRunBytes)
	require.Equal(t, 0, st.FragmentationPct)
}

func TestNewClearsDirtyRegion(t *testing.T) {
	r, err := heap.FromBytes(make([]byte, smallCfg.Size), smallCfg)
	require.NoError(t, err)
	for i := range r.Bytes() {
		r.Bytes()[i] = 0xFF
	}
	a, err := New(r)
	require.NoError(t, err)
	require.Equal(t, uint32(1), a.bm.Count())
	require.Equal(t, byte(0), r.Bytes()[r.Size()-1])
}

func TestAllocBlockAlignedInPayload(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	seen := map[heap.Addr]bool{}
	for range 20 {
		addr, err := a.AllocBlock()
		require.NoError(t, err)
		require.True(t, a.r.IsAligned(addr))
		require.GreaterOrEqual(t, addr, a.r.PayloadStart())
		require.Less(t, int(addr), a.r.Size())
		require.False(t, seen[addr], "address %s handed out twice", addr)
		seen[addr] = true
		requireLive(t, a, addr, 1)
	}
	requireConsistent(t, a)
}

func TestAllocBlockStampsCanaries(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	addr, err := a.AllocBlock()
	require.NoError(t, err)
	require.Equal(t, guard.StartMagic, wordAt(a, addr, 0))
	require.Equal(t, guard.EndMagic, wordAt(a, addr, 60))

	p, err := a.Payload(addr, 1)
	require.NoError(t, err)
	require.Len(t, p, 64-guard.Overhead)
	for _, b := range p {
		require.Zero(t, b)
	}
}

func TestAllocBlockExhaustion(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	for range a.r.PayloadBlocks() {
		_, err := a.AllocBlock()
		require.NoError(t, err)
	}
	_, err := a.AllocBlock()
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, 1, a.Counters().AllocFailed)
	requireConsistent(t, a)
}

func TestAllocBlockWrapsToFreedBlock(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	var addrs []heap.Addr
	for range a.r.PayloadBlocks() {
		addr, err := a.AllocBlock()
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}
	require.NoError(t, a.FreeBlock(addrs[10]))
	addr, err := a.AllocBlock()
	require.NoError(t, err)
	require.Equal(t, addrs[10], addr)
}

func TestHintStaysInPayload(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	addr, err := a.AllocBlocks(a.r.PayloadBlocks())
	require.NoError(t, err)
	require.Equal(t, a.r.ReservedBlocks(), a.Hint())
	require.NoError(t, a.FreeBlocks(addr, a.r.PayloadBlocks()))
	require.Equal(t, a.r.ReservedBlocks(), a.Hint())
}

func TestAllocBlocksZero(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	_, err := a.AllocBlocks(0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAllocBlocksLongerThanHeap(t *testing.T) {
	a := reference(t)
	for _, n := range []uint32{65409, 65536, 1 << 31} {
		_, err := a.AllocBlocks(n)
		require.ErrorIs(t, err, ErrOutOfMemory, "count %d", n)
	}
	addr, err := a.AllocBlocks(65408)
	require.NoError(t, err)
	require.Equal(t, a.r.PayloadStart(), addr)
}

func TestAllocBlocksFirstFit(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	x, err := a.AllocBlocks(4)
	require.NoError(t, err)
	y, err := a.AllocBlocks(4)
	require.NoError(t, err)
	_, err = a.AllocBlocks(4)
	require.NoError(t, err)
	require.NoError(t, a.FreeBlocks(y, 4))

	// Hint retracted to y's first block, so a fitting run lands there.
	z, err := a.AllocBlocks(3)
	require.NoError(t, err)
	require.Equal(t, y, z)
	requireLive(t, a, x, 4)
	requireLive(t, a, z, 3)
	requireConsistent(t, a)
}

func TestAllocBlocksNoRunDespiteFreeSpace(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	var addrs []heap.Addr
	for range a.r.PayloadBlocks() {
		addr, err := a.AllocBlock()
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}
	for i := 0; i < len(addrs); i += 2 {
		require.NoError(t, a.FreeBlock(addrs[i]))
	}
	before := a.Snapshot()
	_, err := a.AllocBlocks(2)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, before, a.Snapshot())
	require.Greater(t, a.Stats().FreeBlocks, uint32(2))
}

func TestFreeRejectsBadAddresses(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	_, err := a.AllocBlock()
	require.NoError(t, err)
	before := a.Snapshot()

	tests := []struct {
		name  string
		addr  heap.Addr
		count uint32
		want  error
	}{
		{"misaligned", a.r.PayloadStart() + 3, 1, heap.ErrMisaligned},
		{"reserved", 0, 1, heap.ErrReserved},
		{"past end", heap.Addr(a.r.Size()), 1, heap.ErrOutOfRange},
		{"span past end", heap.Addr(a.r.Size() - 64), 2, heap.ErrOutOfRange},
		{"zero count", a.r.PayloadStart(), 0, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.FreeBlocks(tt.addr, tt.count)
			require.ErrorIs(t, err, ErrInvalidArgument)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, before, a.Snapshot())
		})
	}
}

func TestDoubleFree(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	addr, err := a.AllocBlock()
	require.NoError(t, err)
	require.NoError(t, a.FreeBlock(addr))

	before := a.Snapshot()
	err = a.FreeBlock(addr)
	require.ErrorIs(t, err, ErrDoubleFree)
	require.Equal(t, before, a.Snapshot())
	require.Equal(t, int64(0), a.Allocated())
	require.Equal(t, 1, a.Counters().DoubleFrees)
}

func TestFreeNeverAllocated(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	_, err := a.AllocBlocks(2)
	require.NoError(t, err)
	before := a.Snapshot()

	// Second block is allocated, third is not: all-or-nothing.
	err = a.FreeBlocks(a.r.PayloadStart()+64, 2)
	require.ErrorIs(t, err, ErrDoubleFree)
	require.Equal(t, before, a.Snapshot())
	require.Equal(t, int64(2), a.Allocated())
}

func TestPartialFreeRejected(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	addr, err := a.AllocBlocks(4)
	require.NoError(t, err)
	before := a.Snapshot()

	err = a.FreeBlocks(addr, 2)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Equal(t, before, a.Snapshot())
	requireLive(t, a, addr, 4)
	require.Equal(t, 1, a.Counters().PartialFrees)
	require.Equal(t, 0, a.CorruptionEvents())

	require.NoError(t, a.FreeBlocks(addr, 4))
	requireConsistent(t, a)
}

func TestFreeInsideAllocationRejected(t *testing.T) {
	tests := []struct {
		name   string
		offset heap.Addr // from the allocation's address
		count  uint32
	}{
		{"tail span", 64, 2},
		{"last block", 128, 1},
		{"middle block", 64, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAllocator(t, smallCfg)
			addr, err := a.AllocBlocks(3)
			require.NoError(t, err)
			before := a.Snapshot()

			err = a.FreeBlocks(addr+tt.offset, tt.count)
			require.ErrorIs(t, err, ErrInvalidArgument)
			require.Equal(t, before, a.Snapshot())
			require.Equal(t, int64(3), a.Allocated())
			requireLive(t, a, addr, 3)
			require.Equal(t, 1, a.Counters().PartialFrees)
			require.Equal(t, 0, a.CorruptionEvents())
			require.False(t, a.CheckCorruption().Corrupted)

			require.NoError(t, a.FreeBlocks(addr, 3))
			requireConsistent(t, a)
		})
	}
}

func TestOverlongFreeRejected(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	x, err := a.AllocBlocks(2)
	require.NoError(t, err)
	y, err := a.AllocBlocks(2)
	require.NoError(t, err)
	require.Equal(t, x+128, y)
	before := a.Snapshot()

	err = a.FreeBlocks(x, 4)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Equal(t, before, a.Snapshot())
	require.Equal(t, int64(4), a.Allocated())
	requireLive(t, a, x, 2)
	requireLive(t, a, y, 2)
	require.Equal(t, 1, a.Counters().PartialFrees)

	// Each owner can still free its own span.
	require.NoError(t, a.FreeBlocks(y, 2))
	require.NoError(t, a.FreeBlocks(x, 2))
	requireConsistent(t, a)
}

func TestFreeWithDamagedStartCanaryAfterNeighbour(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	_, err := a.AllocBlock()
	require.NoError(t, err)
	y, err := a.AllocBlocks(2)
	require.NoError(t, err)
	putWordAt(a, y, 0, 0)

	// The neighbour's end canary is intact, so y still starts an allocation.
	require.NoError(t, a.FreeBlocks(y, 2))
	require.Equal(t, 1, a.CorruptionEvents())
	require.Equal(t, 0, a.Counters().PartialFrees)
}

func TestFreeAdjacentAllocationsSeparately(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	x, err := a.AllocBlocks(2)
	require.NoError(t, err)
	y, err := a.AllocBlocks(3)
	require.NoError(t, err)
	require.Equal(t, x+128, y)

	// The block after x is allocated but starts its own span.
	require.NoError(t, a.FreeBlocks(x, 2))
	requireLive(t, a, y, 3)
	require.NoError(t, a.FreeBlocks(y, 3))
	require.Equal(t, 0, a.CorruptionEvents())
}

func TestFreeWithDamagedCanaryIsRecorded(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	addr, err := a.AllocBlock()
	require.NoError(t, err)
	putWordAt(a, addr, 0, 0x11111111)

	require.NoError(t, a.FreeBlock(addr))
	require.Equal(t, 1, a.CorruptionEvents())
	f := a.Counters().LastFault
	require.NotNil(t, f)
	assert.Equal(t, addr, f.Addr)
	assert.False(t, f.StartOK)
	assert.True(t, f.EndOK)
	requireConsistent(t, a)
}

func TestFreeRetractsHint(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	first, err := a.AllocBlock()
	require.NoError(t, err)
	_, err = a.AllocBlocks(10)
	require.NoError(t, err)
	require.Equal(t, a.r.ReservedBlocks()+11, a.Hint())

	require.NoError(t, a.FreeBlock(first))
	require.Equal(t, a.r.ReservedBlocks(), a.Hint())
}

func TestPayloadRoundTrip(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	addr, err := a.AllocBlocks(3)
	require.NoError(t, err)
	p, err := a.Payload(addr, 3)
	require.NoError(t, err)
	require.Len(t, p, 3*64-guard.Overhead)
	for i := range p {
		p[i] = byte(i * 7)
	}

	got, err := a.Payload(addr, 3)
	require.NoError(t, err)
	for i := range got {
		require.Equal(t, byte(i*7), got[i])
	}
	requireLive(t, a, addr, 3)
}

func TestPayloadRejectsBadSpan(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	_, err := a.Payload(3, 1)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = a.Span(a.r.PayloadStart(), 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAllocAllFreeAllRestoresInitialState(t *testing.T) {
	a := reference(t)
	initial := a.Snapshot()

	var addrs []heap.Addr
	for {
		addr, err := a.AllocBlock()
		if errors.Is(err, ErrOutOfMemory) {
			break
		}
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}
	require.Len(t, addrs, 65408)
	require.Equal(t, uint32(0), a.Stats().FreeBlocks)

	for _, addr := range addrs {
		require.NoError(t, a.FreeBlock(addr))
	}
	require.Equal(t, initial, a.Snapshot())
	st := a.Stats()
	require.Equal(t, uint64(65408*64), st.LargestFreeRunBytes)
	require.Equal(t, uint32(0), st.UsedBlocks)
	requireConsistent(t, a)
}

func TestIsAllocated(t *testing.T) {
	a := newTestAllocator(t, smallCfg)
	addr, err := a.AllocBlock()
	require.NoError(t, err)
	require.True(t, a.IsAllocated(addr))
	require.True(t, a.IsAllocated(addr+10))
	require.True(t, a.IsAllocated(0))
	require.False(t, a.IsAllocated(addr+64))
	require.False(t, a.IsAllocated(heap.Addr(a.r.Size())))
}
