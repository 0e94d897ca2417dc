package stack

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/stackarena/memutils"
	"github.com/vkngwrapper/stackarena/memutils/backing"
	"github.com/vkngwrapper/stackarena/memutils/block"
	"golang.org/x/exp/slog"
)

// Arena is a block-chained, double-ended stack allocator. Memory is bump-allocated from either end
// of the top block; when the top block is exhausted, a new block is chained on top of it unless the
// arena is NonExpandable. Memory is handed back by popping the most recent allocation on a side or
// by ending a temporary Region.
//
// An Arena is not safe for concurrent use. Use one arena per goroutine (see ScratchSet) or
// synchronize access externally.
type Arena struct {
	logger *slog.Logger
	flags  CreateFlags
	source backing.Source
	state  State

	top         *block.MemoryBlock
	external    *block.MemoryBlock
	blockCount  int
	nextBlockID int
	openRegions int

	minBlockSize       int
	preferredBlockSize int
	defaultAlignment   uint
}

func (a *Arena) Flags() CreateFlags      { return a.flags }
func (a *Arena) State() State            { return a.state }
func (a *Arena) Top() *block.MemoryBlock { return a.top }
func (a *Arena) BlockCount() int         { return a.blockCount }
func (a *Arena) OpenRegionCount() int    { return a.openRegions }
func (a *Arena) Source() backing.Source  { return a.source }
func (a *Arena) DefaultAlignment() uint  { return a.defaultAlignment }

// Quiescent returns true if no temporary regions are open on the arena
func (a *Arena) Quiescent() bool { return a.openRegions == 0 }

func (a *Arena) allocateFromTop(size int, side block.Side, alignment uint) (int, bool) {
	if a.top == nil {
		return 0, false
	}

	if side == block.SideHead {
		return a.top.AllocateFromHead(size, alignment)
	}
	return a.top.AllocateFromTail(size, alignment)
}

// maxAllocationSize is the largest size whose guarded size, alignment slack and block rounding
// still fit in an int
func (a *Arena) maxAllocationSize(alignment uint) int {
	return math.MaxInt - memutils.GuardedSize(0, alignment) - int(alignment) - a.minBlockSize
}

// PushHead allocates size bytes from the head of the arena with the default alignment
func (a *Arena) PushHead(size int) (Allocation, error) {
	return a.Push(size, block.SideHead, 0)
}

// PushTail allocates size bytes from the tail of the arena with the default alignment
func (a *Arena) PushTail(size int) (Allocation, error) {
	return a.Push(size, block.SideTail, 0)
}

// Push allocates size bytes from the requested side of the top block, aligned in memory to
// alignment. An alignment of 0 selects the arena's default alignment.
//
// If the top block cannot satisfy the request, a NonExpandable arena returns an error wrapping
// ErrExhausted and is left unchanged. Otherwise a new block large enough for the request is chained
// on top of the current one and the allocation is made there.
func (a *Arena) Push(size int, side block.Side, alignment uint) (Allocation, error) {
	if a.state == StateFreed {
		return Allocation{}, ErrArenaFreed
	}
	if size < 0 {
		return Allocation{}, errors.Newf("allocation size must not be negative, but was %d", size)
	}
	if side != block.SideHead && side != block.SideTail {
		return Allocation{}, errors.Newf("unknown allocation side %d", side)
	}
	if alignment == 0 {
		alignment = a.defaultAlignment
	}

	err := memutils.CheckPow2(alignment, "alignment")
	if err != nil {
		return Allocation{}, err
	}
	if size > a.maxAllocationSize(alignment) {
		return Allocation{}, errors.Newf("allocation size %d is too large for alignment %d", size, alignment)
	}

	guarded := a.flags&CreateBoundsGuard != 0
	required := size
	padding := 0
	if guarded {
		required = memutils.GuardedSize(size, alignment)
		padding = memutils.GuardPadding(alignment)
	}

	start, success := a.allocateFromTop(required, side, alignment)
	if !success {
		if a.flags&CreateNonExpandable != 0 {
			a.logger.Debug("  Arena::Push FAILED",
				slog.Int("Size", size),
				slog.String("Side", side.String()))
			return Allocation{}, errors.Wrapf(ErrExhausted, "could not allocate %d bytes from the %s of a non-expandable arena", size, side)
		}

		err = a.grow(required, alignment)
		if err != nil {
			return Allocation{}, err
		}

		start, success = a.allocateFromTop(required, side, alignment)
		if !success {
			panic("a freshly-created block could not satisfy the allocation it was created for")
		}
	}

	alloc := Allocation{
		block:  a.top,
		start:  start,
		end:    start + required,
		offset: start + padding,
		size:   size,
		side:   side,
	}

	if a.flags&CreateZeroOnAlloc != 0 {
		clear(alloc.Bytes())
	}

	if guarded {
		memutils.WriteGuards(a.top.Memory(), alloc.offset, size)
		a.top.TrackGuarded(alloc.offset, size, side)
	}

	return alloc, nil
}

// Pop rewinds the cursor on the allocation's side of the top block to the edge of the allocation:
// the head cursor moves back to the allocation's start, and the tail cursor moves up to the
// allocation's end. Popping an allocation that is not the most recent one on its side also releases
// everything pushed to that side after it.
//
// The allocation must live in the top block. Allocations from older blocks can only be released
// by FreeMemBlock, Free, or ending a temporary Region.
func (a *Arena) Pop(alloc Allocation) error {
	if a.state == StateFreed {
		return ErrArenaFreed
	}
	if alloc.IsNull() {
		return ErrNullAllocation
	}
	if alloc.block != a.top {
		return errors.Wrapf(ErrNotTopBlock, "allocation is in block %d", alloc.block.ID())
	}

	if alloc.side == block.SideHead {
		if alloc.start > a.top.Tail() {
			return errors.Wrapf(ErrStaleAllocation, "head allocation at offset %d is beyond the tail cursor %d", alloc.start, a.top.Tail())
		}
		a.top.Rewind(alloc.start, block.SideHead)
		return nil
	}

	if alloc.end < a.top.Head() {
		return errors.Wrapf(ErrStaleAllocation, "tail allocation ending at offset %d is beyond the head cursor %d", alloc.end, a.top.Head())
	}
	a.top.Rewind(alloc.end, block.SideTail)
	return nil
}

// FreeMemBlock detaches the provided block from the arena's chain and releases its memory. It returns
// false if the block is not part of the chain. Any allocations in the block become invalid; the
// caller is responsible for ensuring none are still in use.
//
// Freeing a block other than the top requires walking the chain from the top.
func (a *Arena) FreeMemBlock(b *block.MemoryBlock) (bool, error) {
	if a.state == StateFreed {
		return false, ErrArenaFreed
	}
	if b == nil || a.top == nil {
		return false, nil
	}

	a.logger.Debug("Arena::FreeMemBlock", slog.Int("Block", b.ID()))

	if b == a.top {
		a.top = b.Prev()
		return true, a.releaseBlock(b)
	}

	for current := a.top; current.Prev() != nil; current = current.Prev() {
		if current.Prev() == b {
			current.SetPrev(b.Prev())
			return true, a.releaseBlock(b)
		}
	}

	return false, nil
}

// Free releases every block in the arena. The arena cannot be used afterward. Calling Free on an
// arena that has already been freed does nothing.
func (a *Arena) Free() error {
	if a.state == StateFreed {
		return nil
	}

	a.logger.Debug("Arena::Free", slog.Int("BlockCount", a.blockCount))

	if a.openRegions > 0 {
		a.logger.Warn("arena freed with temporary regions still open", slog.Int("OpenRegions", a.openRegions))
	}

	var err error
	for a.top != nil {
		current := a.top
		a.top = current.Prev()

		releaseErr := a.releaseBlock(current)
		if releaseErr != nil {
			a.logger.Error("error releasing block while freeing arena", slog.Any("error", releaseErr))
			err = errors.CombineErrors(err, releaseErr)
		}
	}

	a.state = StateFreed
	a.openRegions = 0
	return err
}
