package stack

import "strings"

// CreateFlags configure an Arena's behavior. They are fixed at construction.
type CreateFlags int32

const (
	// CreateNonExpandable prevents the arena from creating additional blocks. When the current block
	// cannot satisfy a Push, ErrExhausted is returned instead.
	CreateNonExpandable CreateFlags = 1 << iota
	// CreateBoundsGuard brackets every allocation with marker words that can be inspected with
	// Arena.LocateHeadGuard, Arena.LocateTailGuard and Arena.CheckCorruption. The markers cost
	// GuardWidth bytes after each allocation and at least GuardWidth bytes before it.
	CreateBoundsGuard
	// CreateZeroOnAlloc zero-fills every allocation before it is returned from Push
	CreateZeroOnAlloc
)

var createFlagsMapping = map[CreateFlags]string{
	CreateNonExpandable: "CreateNonExpandable",
	CreateBoundsGuard:   "CreateBoundsGuard",
	CreateZeroOnAlloc:   "CreateZeroOnAlloc",
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for bit := CreateFlags(1); bit != 0 && bit <= f; bit <<= 1 {
		if f&bit == 0 {
			continue
		}

		name, ok := createFlagsMapping[bit]
		if !ok {
			name = "Unknown"
		}
		names = append(names, name)
	}

	return strings.Join(names, "|")
}

// State is the lifecycle state of an Arena
type State uint32

const (
	StateActive State = iota
	StateFreed
)

var stateMapping = map[State]string{
	StateActive: "Active",
	StateFreed:  "Freed",
}

func (s State) String() string {
	return stateMapping[s]
}
