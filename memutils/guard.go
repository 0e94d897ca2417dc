package memutils

import "encoding/binary"

const (
	// GuardWidth is the number of bytes occupied by each guard marker written around a guarded allocation
	GuardWidth int = 8
	// HeadGuardValue is written into the GuardWidth bytes immediately before a guarded allocation
	HeadGuardValue uint64 = 0x4845414447554152
	// TailGuardValue is written into the GuardWidth bytes immediately after a guarded allocation
	TailGuardValue uint64 = 0x5441494C47554152
)

// GuardPadding returns the number of bytes that are reserved ahead of a guarded allocation with
// the provided alignment. The head marker occupies the last GuardWidth bytes of the padding, so that
// the padding can be a multiple of the alignment and the user region keeps its alignment.
func GuardPadding(alignment uint) int {
	return AlignUp(GuardWidth, alignment)
}

// GuardedSize returns the number of bytes that must be requested from a block to hold a guarded
// allocation of size bytes with the provided alignment.
func GuardedSize(size int, alignment uint) int {
	return GuardPadding(alignment) + size + GuardWidth
}

// WriteGuards writes HeadGuardValue immediately before data[userOffset] and TailGuardValue immediately
// after data[userOffset+size-1]. The caller must have reserved the space with GuardedSize.
func WriteGuards(data []byte, userOffset, size int) {
	binary.LittleEndian.PutUint64(data[userOffset-GuardWidth:userOffset], HeadGuardValue)
	binary.LittleEndian.PutUint64(data[userOffset+size:userOffset+size+GuardWidth], TailGuardValue)
}

// LocateHeadGuard reads the marker word immediately before data[userOffset]
func LocateHeadGuard(data []byte, userOffset int) uint64 {
	return binary.LittleEndian.Uint64(data[userOffset-GuardWidth : userOffset])
}

// LocateTailGuard reads the marker word immediately after a size-byte allocation at data[userOffset]
func LocateTailGuard(data []byte, userOffset, size int) uint64 {
	return binary.LittleEndian.Uint64(data[userOffset+size : userOffset+size+GuardWidth])
}

// ValidateGuards returns true if both markers around the allocation are intact
func ValidateGuards(data []byte, userOffset, size int) bool {
	return LocateHeadGuard(data, userOffset) == HeadGuardValue &&
		LocateTailGuard(data, userOffset, size) == TailGuardValue
}
