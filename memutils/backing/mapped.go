package backing

import (
	"github.com/cockroachdb/errors"
)

// MapSource hands out blocks of anonymous, off-heap mapped memory. Blocks are unmapped as soon as
// they are freed, so any slice still referring to a freed block must not be touched.
type MapSource struct {
	budget    budgetTracker
	callbacks memoryCallbacks
}

var _ Source = &MapSource{}

func NewMapSource(options SourceOptions) *MapSource {
	source := &MapSource{
		budget: newBudgetTracker(options.SizeLimit),
	}
	source.callbacks = memoryCallbacks{callbacks: options.Callbacks, source: source}
	return source
}

func (s *MapSource) AllocateBlock(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Newf("block size must be greater than 0, but was %d", size)
	}

	err := s.budget.addBlock(size)
	if err != nil {
		return nil, err
	}

	memory, err := osMapAnon(size)
	if err != nil {
		s.budget.removeBlock(size)
		return nil, errors.Wrapf(err, "failed to map %d bytes of anonymous memory", size)
	}

	s.callbacks.Allocate(memory)
	return memory, nil
}

func (s *MapSource) FreeBlock(memory []byte) error {
	if memory == nil {
		return errors.New("attempted to free a nil block")
	}

	s.callbacks.Free(memory)

	size := len(memory)
	err := osUnmap(memory)
	if err != nil {
		return errors.Wrapf(err, "failed to unmap block of %d bytes", size)
	}

	s.budget.removeBlock(size)
	return nil
}

func (s *MapSource) Budget() Budget {
	return s.budget.budget()
}
