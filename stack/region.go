package stack

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/stackarena/memutils/block"
	"golang.org/x/exp/slog"
)

// Region is a temporary scope on an Arena. It captures the arena's top block and both of its
// cursors when it is created. When the region ends, the arena is rolled back to that snapshot and
// any blocks created since are released, unless the region was told to keep its changes.
//
// Regions on one arena must be ended in the reverse order they were begun. Every path out of the
// scope that began a region must end it; Arena.WithRegion does this automatically.
type Region struct {
	arena       *Arena
	savedBlock  *block.MemoryBlock
	savedHead   int
	savedTail   int
	savedGuards block.GuardSnapshot
	// firstNewBlockID is the ID the first block created during the region receives
	firstNewBlockID int
	keepChanges     bool
	depth           int
	closed          bool
}

func (r *Region) Arena() *Arena                  { return r.arena }
func (r *Region) SavedBlock() *block.MemoryBlock { return r.savedBlock }
func (r *Region) SavedHead() int                 { return r.savedHead }
func (r *Region) SavedTail() int                 { return r.savedTail }
func (r *Region) KeepChanges() bool              { return r.keepChanges }
func (r *Region) Closed() bool                   { return r.closed }

// SetKeepChanges decides whether ending the region will roll the arena back (false, the default)
// or keep everything allocated within it (true). It may be changed any time before the region ends.
func (r *Region) SetKeepChanges(keep bool) {
	r.keepChanges = keep
}

// End ends the region, rolling back or keeping changes according to KeepChanges
func (r *Region) End() error {
	return r.arena.EndRegion(r)
}

// Commit ends the region and keeps everything allocated within it
func (r *Region) Commit() error {
	r.keepChanges = true
	return r.arena.EndRegion(r)
}

// BeginRegion opens a new temporary region capturing the arena's current state. A region begun on
// a freed arena is not counted as open, and ending it returns ErrArenaFreed.
func (a *Arena) BeginRegion() *Region {
	if a.state == StateFreed {
		return &Region{arena: a}
	}

	a.openRegions++

	region := &Region{
		arena:           a,
		savedBlock:      a.top,
		firstNewBlockID: a.nextBlockID,
		depth:           a.openRegions,
	}

	if a.top != nil {
		region.savedHead = a.top.Head()
		region.savedTail = a.top.Tail()
		if a.flags&CreateBoundsGuard != 0 {
			region.savedGuards = a.top.SnapshotGuards()
		}
	}

	return region
}

// EndRegion closes the provided region. Unless the region is keeping its changes, every block
// created since the region began is released and the region's saved block has its cursors restored.
// Blocks that existed before the region began are never released here, even if the saved block
// itself was freed with FreeMemBlock.
func (a *Arena) EndRegion(r *Region) error {
	if r == nil {
		return errors.New("attempted to end a nil region")
	}
	if r.arena != a {
		return errors.New("attempted to end a region that belongs to a different arena")
	}
	if r.closed {
		return ErrRegionClosed
	}
	if a.state == StateFreed {
		r.closed = true
		return ErrArenaFreed
	}
	if r.depth != a.openRegions {
		return errors.Wrapf(ErrRegionOrder, "region was opened at depth %d, but %d regions are open", r.depth, a.openRegions)
	}

	a.openRegions--
	r.closed = true

	if r.keepChanges {
		return nil
	}

	var err error
	for a.top != nil && a.top.ID() >= r.firstNewBlockID {
		current := a.top
		a.top = current.Prev()

		releaseErr := a.releaseBlock(current)
		if releaseErr != nil {
			a.logger.Error("error releasing block while ending region", slog.Any("error", releaseErr))
			err = errors.CombineErrors(err, releaseErr)
		}
	}

	if r.savedBlock == nil {
		return err
	}

	if a.top != r.savedBlock {
		return errors.CombineErrors(err, errors.New("the region's saved block was freed before the region ended"))
	}

	a.top.Reset(r.savedHead, r.savedTail)
	if a.flags&CreateBoundsGuard != 0 {
		a.top.RestoreGuards(r.savedGuards)
	}
	return err
}

// WithRegion runs fn inside a temporary region, which is ended when fn returns or panics. fn may
// call Region.SetKeepChanges to keep its allocations.
func (a *Arena) WithRegion(fn func(region *Region) error) (err error) {
	region := a.BeginRegion()
	defer func() {
		endErr := a.EndRegion(region)
		err = errors.CombineErrors(err, endErr)
	}()

	return fn(region)
}
