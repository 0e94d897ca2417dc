package stack

import (
	"unsafe"

	"github.com/vkngwrapper/stackarena/memutils/block"
)

// PushCopy allocates len(data) bytes from the requested side with alignment 1 and copies data into them
func (a *Arena) PushCopy(data []byte, side block.Side) (Allocation, error) {
	alloc, err := a.Push(len(data), side, 1)
	if err != nil {
		return Allocation{}, err
	}

	copy(alloc.Bytes(), data)
	return alloc, nil
}

// PushString copies s into the head of the arena and returns a string backed by arena memory. The
// returned string must not be used once the allocation is popped or rolled back.
func (a *Arena) PushString(s string) (string, Allocation, error) {
	alloc, err := a.Push(len(s), block.SideHead, 1)
	if err != nil {
		return "", Allocation{}, err
	}

	bytes := alloc.Bytes()
	copy(bytes, s)
	if len(bytes) == 0 {
		return "", alloc, nil
	}

	return unsafe.String(unsafe.SliceData(bytes), len(bytes)), alloc, nil
}
