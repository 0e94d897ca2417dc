package stack

import "github.com/vkngwrapper/stackarena/memutils/block"

// Allocation is a handle to memory returned from Arena.Push. It identifies the block the memory
// lives in and which end of the block it was taken from, so that Arena.Pop can rewind the correct
// cursor without inspecting addresses.
//
// The zero value is a null allocation.
type Allocation struct {
	block *block.MemoryBlock
	// start and end bound everything reserved for the allocation, including guards and padding
	start int
	end   int
	// offset is the start of the user-visible region
	offset int
	size   int
	side   block.Side
}

// IsNull returns true for the zero-value Allocation
func (a Allocation) IsNull() bool { return a.block == nil }

func (a Allocation) Size() int                 { return a.size }
func (a Allocation) Side() block.Side          { return a.side }
func (a Allocation) Block() *block.MemoryBlock { return a.block }

// Offset returns the offset of the user-visible region within its block
func (a Allocation) Offset() int { return a.offset }

// Bytes returns the user-visible memory of the allocation. It is only valid until the allocation
// is popped, rewound by a temporary region, or its block is freed.
func (a Allocation) Bytes() []byte {
	if a.block == nil || a.block.Released() {
		return nil
	}

	return a.block.Bytes(a.offset, a.size)
}
