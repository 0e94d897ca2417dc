package block

import (
	"unsafe"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/stackarena/memutils"
	"golang.org/x/exp/slices"
)

// Suballocation records one guarded allocation within a MemoryBlock, so that its guard markers can
// be re-read later. Only allocations made with bounds guards are recorded.
type Suballocation struct {
	// Offset is the offset of the user-visible region, not including the head guard
	Offset int
	Size   int
	Side   Side
}

// MemoryBlock is one contiguous, fixed-capacity range of memory with two independent bump cursors.
// The head cursor moves forward from the start of the block and the tail cursor moves backward from
// the end of the block. At all times, 0 <= head <= tail <= size.
//
// Blocks form a chain through Prev, linking each block to the block that was allocated before it.
// A MemoryBlock is not safe for concurrent use.
type MemoryBlock struct {
	id     int
	memory []byte
	base   uintptr
	head   int
	tail   int
	prev   *MemoryBlock

	headGuards []Suballocation
	tailGuards []Suballocation
}

var _ memutils.Validatable = &MemoryBlock{}

// New wraps the provided memory in a MemoryBlock with both cursors at their respective ends
func New(id int, memory []byte) *MemoryBlock {
	b := &MemoryBlock{}
	b.Init(id, memory)
	return b
}

// Init prepares a zero-value or released MemoryBlock for use with the provided memory
func (b *MemoryBlock) Init(id int, memory []byte) {
	if b.memory != nil {
		panic("attempting to initialize a memory block that is already in use")
	}

	b.id = id
	b.memory = memory
	b.base = uintptr(unsafe.Pointer(unsafe.SliceData(memory)))
	b.head = 0
	b.tail = len(memory)
	b.prev = nil
	b.headGuards = b.headGuards[:0]
	b.tailGuards = b.tailGuards[:0]
}

func (b *MemoryBlock) ID() int                   { return b.id }
func (b *MemoryBlock) Size() int                 { return len(b.memory) }
func (b *MemoryBlock) Head() int                 { return b.head }
func (b *MemoryBlock) Tail() int                 { return b.tail }
func (b *MemoryBlock) Prev() *MemoryBlock        { return b.prev }
func (b *MemoryBlock) SetPrev(prev *MemoryBlock) { b.prev = prev }

// Memory returns the full backing memory of the block
func (b *MemoryBlock) Memory() []byte { return b.memory }

// Released returns true once Release has been called on the block
func (b *MemoryBlock) Released() bool { return b.memory == nil }

// FreeBytes returns the number of bytes between the head and tail cursors
func (b *MemoryBlock) FreeBytes() int { return b.tail - b.head }

// Bytes returns the region [offset, offset+size) of the block. The returned slice's capacity is
// limited to size, so appending to it will never write over neighboring allocations.
func (b *MemoryBlock) Bytes(offset, size int) []byte {
	return b.memory[offset : offset+size : offset+size]
}

// AllocateFromHead reserves size bytes at the head cursor, aligned in memory to alignment. It returns
// the offset of the reserved region and true on success. On failure the block is not modified.
func (b *MemoryBlock) AllocateFromHead(size int, alignment uint) (int, bool) {
	memutils.DebugCheckPow2(alignment, "alignment")

	if size < 0 {
		return 0, false
	}

	aligned := int(memutils.AlignUpAddress(b.base+uintptr(b.head), alignment) - b.base)
	if aligned > b.tail || size > b.tail-aligned {
		return 0, false
	}

	b.head = aligned + size
	memutils.DebugValidate(b)
	return aligned, true
}

// AllocateFromTail reserves size bytes below the tail cursor, choosing the highest start offset
// that is aligned in memory to alignment. It returns the offset of the reserved region and true on
// success. On failure the block is not modified.
func (b *MemoryBlock) AllocateFromTail(size int, alignment uint) (int, bool) {
	memutils.DebugCheckPow2(alignment, "alignment")

	if size < 0 || size > b.tail-b.head {
		return 0, false
	}

	unaligned := b.base + uintptr(b.tail-size)
	start := int(memutils.AlignDownAddress(unaligned, alignment)) - int(b.base)
	if start < b.head {
		return 0, false
	}

	b.tail = start
	memutils.DebugValidate(b)
	return start, true
}

// Rewind moves one cursor back to boundary. The caller is responsible for ensuring the boundary is
// consistent with the allocations it has made; no ordering checks are performed here.
func (b *MemoryBlock) Rewind(boundary int, side Side) {
	if side == SideHead {
		b.head = boundary
	} else {
		b.tail = boundary
	}
	b.pruneGuards()
	memutils.DebugValidate(b)
}

// Reset moves both cursors to a previously-captured snapshot
func (b *MemoryBlock) Reset(head, tail int) {
	b.head = head
	b.tail = tail
	b.pruneGuards()
	memutils.DebugValidate(b)
}

// Release detaches the block from its memory and from the chain. The block must not be used
// afterward unless Init is called again.
func (b *MemoryBlock) Release() []byte {
	memory := b.memory
	b.memory = nil
	b.base = 0
	b.head = 0
	b.tail = 0
	b.prev = nil
	b.headGuards = b.headGuards[:0]
	b.tailGuards = b.tailGuards[:0]
	return memory
}

// TrackGuarded records a guarded allocation so that VisitGuarded can find it later
func (b *MemoryBlock) TrackGuarded(userOffset, size int, side Side) {
	record := Suballocation{Offset: userOffset, Size: size, Side: side}
	if side == SideHead {
		b.headGuards = append(b.headGuards, record)
	} else {
		b.tailGuards = append(b.tailGuards, record)
	}
}

// VisitGuarded calls visit once for every recorded guarded allocation that is still live in the block
func (b *MemoryBlock) VisitGuarded(visit func(suballoc Suballocation) error) error {
	for _, suballoc := range b.headGuards {
		if err := visit(suballoc); err != nil {
			return err
		}
	}

	for i := len(b.tailGuards) - 1; i >= 0; i-- {
		if err := visit(b.tailGuards[i]); err != nil {
			return err
		}
	}

	return nil
}

// GuardSnapshot is a copy of a block's guarded allocation records, taken so that a later Reset
// to the same cursors can bring back records that were pruned in between
type GuardSnapshot struct {
	headGuards []Suballocation
	tailGuards []Suballocation
}

// SnapshotGuards copies the block's live guarded allocation records
func (b *MemoryBlock) SnapshotGuards() GuardSnapshot {
	return GuardSnapshot{
		headGuards: slices.Clone(b.headGuards),
		tailGuards: slices.Clone(b.tailGuards),
	}
}

// RestoreGuards replaces the block's guarded allocation records with a snapshot. Records the
// cursors have since moved past are dropped again.
func (b *MemoryBlock) RestoreGuards(snapshot GuardSnapshot) {
	b.headGuards = append(b.headGuards[:0], snapshot.headGuards...)
	b.tailGuards = append(b.tailGuards[:0], snapshot.tailGuards...)
	b.pruneGuards()
	memutils.DebugValidate(b)
}

// GuardedCount returns the number of live guarded allocations recorded in the block
func (b *MemoryBlock) GuardedCount() int {
	return len(b.headGuards) + len(b.tailGuards)
}

// Records are pushed in cursor order, so anything the cursors have moved past is always a suffix
func (b *MemoryBlock) pruneGuards() {
	for len(b.headGuards) > 0 {
		last := b.headGuards[len(b.headGuards)-1]
		if last.Offset+last.Size+memutils.GuardWidth <= b.head {
			break
		}
		b.headGuards = b.headGuards[:len(b.headGuards)-1]
	}

	for len(b.tailGuards) > 0 {
		last := b.tailGuards[len(b.tailGuards)-1]
		if last.Offset-memutils.GuardWidth >= b.tail {
			break
		}
		b.tailGuards = b.tailGuards[:len(b.tailGuards)-1]
	}
}

// Validate checks the cursor invariant and the guard records. When the block is functioning
// correctly, it should not be possible for this method to return an error.
func (b *MemoryBlock) Validate() error {
	if b.memory == nil {
		return errors.New("memory block has been released")
	}
	if b.head < 0 {
		return errors.Wrapf(memutils.InvariantError, "head cursor %d is negative", b.head)
	}
	if b.head > b.tail {
		return errors.Wrapf(memutils.InvariantError, "head cursor %d has passed tail cursor %d", b.head, b.tail)
	}
	if b.tail > len(b.memory) {
		return errors.Wrapf(memutils.InvariantError, "tail cursor %d is past the end of the block (size %d)", b.tail, len(b.memory))
	}

	offset := 0
	for index, suballoc := range b.headGuards {
		if suballoc.Offset-memutils.GuardWidth < offset {
			return errors.Errorf("guarded head allocation at index %d has offset %d- this collides with previous allocations, expected offset %d", index, suballoc.Offset, offset)
		}
		offset = suballoc.Offset + suballoc.Size + memutils.GuardWidth
	}

	offset = len(b.memory)
	for index, suballoc := range b.tailGuards {
		if suballoc.Offset+suballoc.Size+memutils.GuardWidth > offset {
			return errors.Errorf("guarded tail allocation at index %d ends at %d- this collides with previous allocations, expected end %d", index, suballoc.Offset+suballoc.Size+memutils.GuardWidth, offset)
		}
		offset = suballoc.Offset - memutils.GuardWidth
	}

	return nil
}

// AddStatistics sums this block's usage into the provided memutils.Statistics object
func (b *MemoryBlock) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount++
	stats.BlockBytes += len(b.memory)
	stats.HeadBytes += b.head
	stats.TailBytes += len(b.memory) - b.tail
}

// AddDetailedStatistics sums this block's usage into the provided memutils.DetailedStatistics object
func (b *MemoryBlock) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.AddBlock(len(b.memory), b.head, b.tail)
}

// BlockJsonData populates a json object with information about this block
func (b *MemoryBlock) BlockJsonData(json jwriter.ObjectState) {
	json.Name("Id").Int(b.id)
	json.Name("TotalBytes").Int(len(b.memory))
	json.Name("HeadBytes").Int(b.head)
	json.Name("TailBytes").Int(len(b.memory) - b.tail)
	json.Name("UnusedBytes").Int(b.tail - b.head)
	json.Name("GuardedAllocations").Int(b.GuardedCount())
}
