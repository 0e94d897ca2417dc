package block_test

import (
	"testing"
	"unsafe"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/stackarena/memutils"
	"github.com/vkngwrapper/stackarena/memutils/block"
)

func address(b *block.MemoryBlock, offset int) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b.Memory()))) + uintptr(offset)
}

func TestAllocateFromHead(t *testing.T) {
	b := block.New(1, make([]byte, 1000))

	offset, ok := b.AllocateFromHead(100, 1)
	require.True(t, ok)
	require.Equal(t, 0, offset)
	require.Equal(t, 100, b.Head())

	offset, ok = b.AllocateFromHead(10, 64)
	require.True(t, ok)
	require.Zero(t, address(b, offset)%64)
	require.GreaterOrEqual(t, offset, 100)
	require.Equal(t, offset+10, b.Head())

	head := b.Head()
	_, ok = b.AllocateFromHead(2000, 1)
	require.False(t, ok)
	require.Equal(t, head, b.Head())
	require.Equal(t, 1000, b.Tail())

	require.NoError(t, b.Validate())
}

func TestAllocateFromTail(t *testing.T) {
	b := block.New(1, make([]byte, 1000))

	first, ok := b.AllocateFromTail(100, 1)
	require.True(t, ok)
	require.Equal(t, 900, first)
	require.Equal(t, 900, b.Tail())

	second, ok := b.AllocateFromTail(10, 32)
	require.True(t, ok)
	require.Less(t, second, first)
	require.Zero(t, address(b, second)%32)
	require.LessOrEqual(t, second+10, first)
	require.Equal(t, second, b.Tail())

	tail := b.Tail()
	_, ok = b.AllocateFromTail(tail+1, 1)
	require.False(t, ok)
	require.Equal(t, tail, b.Tail())
	require.Equal(t, 0, b.Head())
}

func TestHeadTailMeet(t *testing.T) {
	b := block.New(1, make([]byte, 256))

	_, ok := b.AllocateFromHead(128, 1)
	require.True(t, ok)
	_, ok = b.AllocateFromTail(128, 1)
	require.True(t, ok)
	require.Equal(t, b.Head(), b.Tail())
	require.Equal(t, 0, b.FreeBytes())

	_, ok = b.AllocateFromHead(1, 1)
	require.False(t, ok)
	_, ok = b.AllocateFromTail(1, 1)
	require.False(t, ok)

	_, ok = b.AllocateFromHead(0, 1)
	require.True(t, ok)
	require.NoError(t, b.Validate())
}

func TestRewindAndReset(t *testing.T) {
	b := block.New(1, make([]byte, 1000))

	_, ok := b.AllocateFromHead(100, 1)
	require.True(t, ok)
	second, ok := b.AllocateFromHead(100, 1)
	require.True(t, ok)
	tailOffset, ok := b.AllocateFromTail(50, 1)
	require.True(t, ok)

	b.Rewind(second, block.SideHead)
	require.Equal(t, 100, b.Head())

	b.Rewind(tailOffset+50, block.SideTail)
	require.Equal(t, 1000, b.Tail())

	b.Reset(0, 1000)
	require.Equal(t, 0, b.Head())
	require.Equal(t, 1000, b.Tail())
}

func TestGuardRecordsPrunedByRewind(t *testing.T) {
	b := block.New(1, make([]byte, 1000))
	size := memutils.GuardedSize(16, 8)

	start, ok := b.AllocateFromHead(size, 8)
	require.True(t, ok)
	b.TrackGuarded(start+memutils.GuardPadding(8), 16, block.SideHead)

	tailStart, ok := b.AllocateFromTail(size, 8)
	require.True(t, ok)
	b.TrackGuarded(tailStart+memutils.GuardPadding(8), 16, block.SideTail)

	require.Equal(t, 2, b.GuardedCount())
	require.NoError(t, b.Validate())

	b.Rewind(start, block.SideHead)
	require.Equal(t, 1, b.GuardedCount())

	var visited []block.Suballocation
	err := b.VisitGuarded(func(suballoc block.Suballocation) error {
		visited = append(visited, suballoc)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []block.Suballocation{
		{Offset: tailStart + memutils.GuardPadding(8), Size: 16, Side: block.SideTail},
	}, visited)

	b.Rewind(tailStart+size, block.SideTail)
	require.Equal(t, 0, b.GuardedCount())
}

func TestRestoreGuardsAfterReset(t *testing.T) {
	b := block.New(1, make([]byte, 1000))
	size := memutils.GuardedSize(16, 8)

	start, ok := b.AllocateFromHead(size, 8)
	require.True(t, ok)
	b.TrackGuarded(start+memutils.GuardPadding(8), 16, block.SideHead)

	head, tail := b.Head(), b.Tail()
	snapshot := b.SnapshotGuards()

	b.Rewind(start, block.SideHead)
	require.Equal(t, 0, b.GuardedCount())

	// Reuse the popped space so the old record's backing storage is overwritten
	reused, ok := b.AllocateFromHead(size+8, 8)
	require.True(t, ok)
	b.TrackGuarded(reused+memutils.GuardPadding(8)+8, 16, block.SideHead)

	b.Reset(head, tail)
	require.Equal(t, 0, b.GuardedCount())

	b.RestoreGuards(snapshot)
	require.Equal(t, 1, b.GuardedCount())

	var visited []block.Suballocation
	err := b.VisitGuarded(func(suballoc block.Suballocation) error {
		visited = append(visited, suballoc)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []block.Suballocation{
		{Offset: start + memutils.GuardPadding(8), Size: 16, Side: block.SideHead},
	}, visited)
	require.NoError(t, b.Validate())
}

func TestValidateCatchesCrossedCursors(t *testing.T) {
	b := block.New(1, make([]byte, 100))
	b.Rewind(80, block.SideHead)
	b.Rewind(20, block.SideTail)

	err := b.Validate()
	require.Error(t, err)
	require.ErrorIs(t, err, memutils.InvariantError)
}

func TestReleaseAndInit(t *testing.T) {
	b := block.New(3, make([]byte, 100))
	b.SetPrev(block.New(2, make([]byte, 100)))

	memory := b.Release()
	require.Len(t, memory, 100)
	require.True(t, b.Released())
	require.Nil(t, b.Prev())
	require.Error(t, b.Validate())

	b.Init(4, make([]byte, 50))
	require.Equal(t, 4, b.ID())
	require.Equal(t, 50, b.Tail())
	require.Panics(t, func() {
		b.Init(5, make([]byte, 50))
	})
}

func TestBlockStatistics(t *testing.T) {
	b := block.New(7, make([]byte, 1000))
	_, _ = b.AllocateFromHead(100, 1)
	_, _ = b.AllocateFromTail(200, 1)

	var stats memutils.Statistics
	b.AddStatistics(&stats)
	require.Equal(t, memutils.Statistics{
		BlockCount: 1,
		BlockBytes: 1000,
		HeadBytes:  100,
		TailBytes:  200,
	}, stats)

	writer := jwriter.NewWriter()
	obj := writer.Object()
	b.BlockJsonData(obj)
	obj.End()
	require.JSONEq(t, `{"Id":7,"TotalBytes":1000,"HeadBytes":100,"TailBytes":200,"UnusedBytes":700,"GuardedAllocations":0}`, string(writer.Bytes()))
}
