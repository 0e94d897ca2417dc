package stack

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/stackarena/memutils"
	"github.com/vkngwrapper/stackarena/memutils/block"
	"golang.org/x/exp/slog"
)

// blockSizeFor chooses the size of a new block that must hold an allocation of required bytes at
// the provided alignment. The alignment slack ensures the allocation fits no matter where the new
// block's memory lands.
func (a *Arena) blockSizeFor(required int, alignment uint) int {
	size := required + int(alignment) - 1
	if size < a.preferredBlockSize {
		size = a.preferredBlockSize
	}

	return memutils.AlignUp(size, uint(a.minBlockSize))
}

// createBlock allocates a new block from the arena's source and makes it the new top
func (a *Arena) createBlock(size int) error {
	memory, err := a.source.AllocateBlock(size)
	if err != nil {
		return errors.Wrapf(err, "failed to allocate a %d-byte block", size)
	}

	newBlock := block.New(a.nextBlockID, memory)
	a.nextBlockID++

	newBlock.SetPrev(a.top)
	a.top = newBlock
	a.blockCount++

	return nil
}

// grow adds a block that is guaranteed to hold an allocation of required bytes at alignment
func (a *Arena) grow(required int, alignment uint) error {
	size := a.blockSizeFor(required, alignment)

	a.logger.Debug("    Arena::grow",
		slog.Int("Required", required),
		slog.Int("BlockSize", size),
		slog.Int("BlockCount", a.blockCount))

	return a.createBlock(size)
}

// releaseBlock hands a detached block's memory back to where it came from
func (a *Arena) releaseBlock(b *block.MemoryBlock) error {
	if b == a.external {
		b.Release()
		a.external = nil
		a.blockCount--
		return nil
	}

	id := b.ID()
	memory := b.Release()
	a.blockCount--

	err := a.source.FreeBlock(memory)
	if err != nil {
		return errors.Wrapf(err, "failed to release block %d", id)
	}

	return nil
}
