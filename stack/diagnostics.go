package stack

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/stackarena/memutils"
	"github.com/vkngwrapper/stackarena/memutils/block"
	"golang.org/x/exp/slog"
)

// LocateHeadGuard returns the marker word immediately before the allocation's user region. On an
// intact allocation this is memutils.HeadGuardValue.
func (a *Arena) LocateHeadGuard(alloc Allocation) (uint64, error) {
	err := a.checkGuardedAllocation(alloc)
	if err != nil {
		return 0, err
	}

	return memutils.LocateHeadGuard(alloc.block.Memory(), alloc.offset), nil
}

// LocateTailGuard returns the marker word immediately after the allocation's user region. On an
// intact allocation this is memutils.TailGuardValue.
func (a *Arena) LocateTailGuard(alloc Allocation) (uint64, error) {
	err := a.checkGuardedAllocation(alloc)
	if err != nil {
		return 0, err
	}

	return memutils.LocateTailGuard(alloc.block.Memory(), alloc.offset, alloc.size), nil
}

func (a *Arena) checkGuardedAllocation(alloc Allocation) error {
	if a.flags&CreateBoundsGuard == 0 {
		return ErrGuardsDisabled
	}
	if alloc.IsNull() {
		return ErrNullAllocation
	}
	if alloc.block.Released() {
		return errors.Wrapf(ErrStaleAllocation, "block %d has been released", alloc.block.ID())
	}

	return nil
}

// CheckCorruption re-reads the guard markers of every live guarded allocation in the arena and
// returns an error wrapping ErrGuardCorrupted for the first damaged one. The arena never runs this
// check on its own; it is fairly expensive and intended for diagnostics.
func (a *Arena) CheckCorruption() error {
	a.logger.Debug("Arena::CheckCorruption")

	if a.flags&CreateBoundsGuard == 0 {
		return ErrGuardsDisabled
	}
	if a.state == StateFreed {
		return ErrArenaFreed
	}

	for current := a.top; current != nil; current = current.Prev() {
		memory := current.Memory()
		blockID := current.ID()

		err := current.VisitGuarded(func(suballoc block.Suballocation) error {
			if !memutils.ValidateGuards(memory, suballoc.Offset, suballoc.Size) {
				return errors.Wrapf(ErrGuardCorrupted, "block %d, %s allocation at offset %d, size %d", blockID, suballoc.Side, suballoc.Offset, suballoc.Size)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the invariants of every block in the arena
func (a *Arena) Validate() error {
	if a.state == StateFreed {
		return nil
	}

	count := 0
	for current := a.top; current != nil; current = current.Prev() {
		err := current.Validate()
		if err != nil {
			return errors.Wrapf(err, "block %d", current.ID())
		}
		count++
	}

	if count != a.blockCount {
		return errors.Newf("arena counts %d blocks, but %d blocks are in the chain", a.blockCount, count)
	}
	if a.openRegions < 0 {
		return errors.Newf("open region count %d is negative", a.openRegions)
	}

	return nil
}

// Blocks returns the chain of blocks from the top down
func (a *Arena) Blocks() []*block.MemoryBlock {
	blocks := make([]*block.MemoryBlock, 0, a.blockCount)
	for current := a.top; current != nil; current = current.Prev() {
		blocks = append(blocks, current)
	}
	return blocks
}

// CalculateStatistics sums the usage of every block in the arena into stats
func (a *Arena) CalculateStatistics(stats *memutils.DetailedStatistics) {
	for current := a.top; current != nil; current = current.Prev() {
		current.AddDetailedStatistics(stats)
	}
}

// BuildStatsString produces a JSON document describing the arena. When detailed is true, every block
// in the chain is listed.
func (a *Arena) BuildStatsString(detailed bool) string {
	a.logger.Debug("Arena::BuildStatsString", slog.Bool("Detailed", detailed))

	writer := jwriter.NewWriter()
	a.writeStats(&writer, detailed)
	return string(writer.Bytes())
}

func (a *Arena) writeStats(writer *jwriter.Writer, detailed bool) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	a.CalculateStatistics(&stats)

	objState := writer.Object()
	defer objState.End()

	general := objState.Name("General").Object()
	general.Name("State").String(a.state.String())
	general.Name("Flags").String(a.flags.String())
	general.Name("OpenRegions").Int(a.openRegions)
	general.Name("DefaultAlignment").Int(int(a.defaultAlignment))
	general.End()

	total := objState.Name("Total").Object()
	total.Name("BlockCount").Int(stats.BlockCount)
	total.Name("BlockBytes").Int(stats.BlockBytes)
	total.Name("HeadBytes").Int(stats.HeadBytes)
	total.Name("TailBytes").Int(stats.TailBytes)
	total.Name("UnusedBytes").Int(stats.UnusedBytes())
	if stats.BlockCount > 0 {
		total.Name("BlockSizeMin").Int(stats.BlockSizeMin)
		total.Name("BlockSizeMax").Int(stats.BlockSizeMax)
		total.Name("UnusedRangeSizeMin").Int(stats.UnusedRangeSizeMin)
		total.Name("UnusedRangeSizeMax").Int(stats.UnusedRangeSizeMax)
	}
	total.End()

	if a.source != nil {
		budget := a.source.Budget()
		budgetObj := objState.Name("Budget").Object()
		budgetObj.Name("BlockCount").Int(budget.BlockCount)
		budgetObj.Name("BlockBytes").Int(budget.BlockBytes)
		budgetObj.Name("Limit").Int(budget.Limit)
		budgetObj.End()
	}

	if !detailed {
		return
	}

	blocks := objState.Name("Blocks").Array()
	defer blocks.End()

	for current := a.top; current != nil; current = current.Prev() {
		blockObj := blocks.Object()
		current.BlockJsonData(blockObj)
		blockObj.End()
	}
}
