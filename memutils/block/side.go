package block

// Side identifies which end of a MemoryBlock an allocation is taken from
type Side uint32

const (
	// SideHead allocations are bump-allocated forward from the start of the block
	SideHead Side = iota
	// SideTail allocations are bump-allocated backward from the end of the block
	SideTail
)

var sideMapping = map[Side]string{
	SideHead: "Head",
	SideTail: "Tail",
}

func (s Side) String() string {
	return sideMapping[s]
}
