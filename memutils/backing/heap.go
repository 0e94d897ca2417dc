package backing

import "github.com/cockroachdb/errors"

// HeapSource hands out blocks allocated on the Go heap. Blocks are released to the garbage
// collector when they are freed and no longer referenced.
type HeapSource struct {
	budget    budgetTracker
	callbacks memoryCallbacks
}

var _ Source = &HeapSource{}

func NewHeapSource(options SourceOptions) *HeapSource {
	source := &HeapSource{
		budget: newBudgetTracker(options.SizeLimit),
	}
	source.callbacks = memoryCallbacks{callbacks: options.Callbacks, source: source}
	return source
}

func (s *HeapSource) AllocateBlock(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Newf("block size must be greater than 0, but was %d", size)
	}

	err := s.budget.addBlock(size)
	if err != nil {
		return nil, err
	}

	memory := make([]byte, size)
	s.callbacks.Allocate(memory)
	return memory, nil
}

func (s *HeapSource) FreeBlock(memory []byte) error {
	if memory == nil {
		return errors.New("attempted to free a nil block")
	}

	s.callbacks.Free(memory)
	s.budget.removeBlock(len(memory))
	return nil
}

func (s *HeapSource) Budget() Budget {
	return s.budget.budget()
}
