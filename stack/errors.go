package stack

import "github.com/cockroachdb/errors"

var (
	// ErrExhausted is returned from Push when a NonExpandable arena cannot satisfy a request.
	// The arena is not modified.
	ErrExhausted = errors.New("arena exhausted")
	// ErrArenaFreed is returned from any operation on an arena after Free has been called
	ErrArenaFreed = errors.New("arena has been freed")
	// ErrNotTopBlock is returned from Pop when the allocation does not live in the arena's top block
	ErrNotTopBlock = errors.New("allocation does not belong to the top block")
	// ErrStaleAllocation is returned from Pop when the allocation lies beyond the opposite cursor,
	// meaning it was already rewound and its space has since been handed to the other side
	ErrStaleAllocation = errors.New("allocation has already been released")
	// ErrNullAllocation is returned when a zero-value Allocation is passed to an arena
	ErrNullAllocation = errors.New("allocation is null")
	// ErrRegionOrder is returned from EndRegion when the region is not the innermost open region
	ErrRegionOrder = errors.New("temporary regions must be ended in reverse order of creation")
	// ErrRegionClosed is returned from EndRegion when the region has already been ended
	ErrRegionClosed = errors.New("temporary region has already been ended")
	// ErrGuardsDisabled is returned from guard diagnostics on arenas created without CreateBoundsGuard
	ErrGuardsDisabled = errors.New("bounds guards are not enabled for this arena")
	// ErrGuardCorrupted is returned from CheckCorruption when a guard marker has been overwritten
	ErrGuardCorrupted = errors.New("MEMORY CORRUPTION DETECTED AROUND GUARDED ALLOCATION")
)
