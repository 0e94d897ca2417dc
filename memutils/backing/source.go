package backing

import (
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ErrHeapLimit is returned from Source.AllocateBlock when the allocation would take the source
// past its configured byte limit
var ErrHeapLimit = errors.New("backing heap size limit exceeded")

// Source provides the raw memory that MemoryBlocks are built on. Implementations must be safe
// for concurrent use, since several arenas may share one Source.
type Source interface {
	// AllocateBlock returns size bytes of zeroed memory
	AllocateBlock(size int) ([]byte, error)
	// FreeBlock returns memory previously produced by AllocateBlock on the same Source
	FreeBlock(memory []byte) error
	// Budget reports the memory currently held by consumers of this Source
	Budget() Budget
}

// Budget is a snapshot of a Source's outstanding blocks
type Budget struct {
	BlockCount int
	BlockBytes int
	// Limit is the maximum number of bytes the Source will hand out, or -1 if there is no limit
	Limit int
}

type AllocateBlockCallback func(source Source, memory []byte, userData any)
type FreeBlockCallback func(source Source, memory []byte, userData any)

// MemoryCallbackOptions is an optional set of callbacks that will be executed when a Source hands
// out or takes back a block of memory
type MemoryCallbackOptions struct {
	Allocate AllocateBlockCallback
	Free     FreeBlockCallback
	UserData any
}

// SourceOptions contains optional settings shared by all Source implementations in this package
type SourceOptions struct {
	// SizeLimit is the maximum number of bytes that may be outstanding at once. 0 means no limit.
	SizeLimit int
	// Callbacks, if provided, are executed for every block allocated from or freed to the source
	Callbacks *MemoryCallbackOptions
}

// budgetTracker counts outstanding blocks for a Source and enforces its limit
type budgetTracker struct {
	blockCount atomic.Int32
	blockBytes atomic.Int64
	limit      int64
}

func newBudgetTracker(limit int) budgetTracker {
	if limit <= 0 {
		return budgetTracker{limit: -1}
	}
	return budgetTracker{limit: int64(limit)}
}

func (t *budgetTracker) addBlock(size int) error {
	for {
		currentVal := t.blockBytes.Load()
		targetVal := currentVal + int64(size)

		if t.limit >= 0 && targetVal > t.limit {
			return errors.Wrapf(ErrHeapLimit, "allocating %d bytes with %d bytes outstanding and a limit of %d", size, currentVal, t.limit)
		}

		if t.blockBytes.CompareAndSwap(currentVal, targetVal) {
			break
		}
	}

	t.blockCount.Add(1)
	return nil
}

func (t *budgetTracker) removeBlock(size int) {
	newVal := t.blockBytes.Add(int64(-size))
	if newVal < 0 {
		panic(fmt.Sprintf("block bytes budget went negative: %d", newVal))
	}

	newCountVal := t.blockCount.Add(-1)
	if newCountVal < 0 {
		panic(fmt.Sprintf("block count budget went negative: %d", newCountVal))
	}
}

func (t *budgetTracker) budget() Budget {
	return Budget{
		BlockCount: int(t.blockCount.Load()),
		BlockBytes: int(t.blockBytes.Load()),
		Limit:      int(t.limit),
	}
}

type memoryCallbacks struct {
	callbacks *MemoryCallbackOptions
	source    Source
}

func (c *memoryCallbacks) Allocate(memory []byte) {
	if c.callbacks != nil && c.callbacks.Allocate != nil {
		c.callbacks.Allocate(c.source, memory, c.callbacks.UserData)
	}
}

func (c *memoryCallbacks) Free(memory []byte) {
	if c.callbacks != nil && c.callbacks.Free != nil {
		c.callbacks.Free(c.source, memory, c.callbacks.UserData)
	}
}
