package stack

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/stackarena/memutils"
	"github.com/vkngwrapper/stackarena/memutils/backing"
	"github.com/vkngwrapper/stackarena/memutils/block"
	"golang.org/x/exp/slog"
)

const (
	// DefaultMinBlockSize is the granularity that block sizes are rounded up to when none is
	// provided via CreateOptions. It is equal to 4Kb.
	DefaultMinBlockSize int = 4 * 1024
	// DefaultAlignment is the alignment used by Push when an alignment of 0 is requested
	DefaultAlignment uint = 16
)

// CreateOptions contains optional settings when creating an Arena
type CreateOptions struct {
	// Flags configure arena behavior. They cannot be changed after construction.
	Flags CreateFlags
	// MinBlockSize is the granularity that every block size is rounded up to. It must be a power
	// of two. Defaults to DefaultMinBlockSize.
	MinBlockSize int
	// BlockSize is the smallest block that will be created when the arena grows. Defaults to the
	// initial size of the arena.
	BlockSize int
	// DefaultAlignment is the alignment used by Push when an alignment of 0 is requested.
	// It must be a power of two. Defaults to DefaultAlignment.
	DefaultAlignment uint
	// Source provides the memory for new blocks. Defaults to a backing.HeapSource with no limit.
	// It is ignored by NewFromBuffer.
	Source backing.Source
}

func (o *CreateOptions) normalize() error {
	if o.MinBlockSize == 0 {
		o.MinBlockSize = DefaultMinBlockSize
	}
	if o.DefaultAlignment == 0 {
		o.DefaultAlignment = DefaultAlignment
	}

	err := memutils.CheckPow2(o.MinBlockSize, "CreateOptions.MinBlockSize")
	if err != nil {
		return err
	}

	err = memutils.CheckPow2(o.DefaultAlignment, "CreateOptions.DefaultAlignment")
	if err != nil {
		return err
	}

	if o.BlockSize < 0 {
		return errors.Newf("CreateOptions.BlockSize must not be negative, but was %d", o.BlockSize)
	}

	return nil
}

// New creates a new Arena whose first block holds at least size bytes. The size is rounded up to
// CreateOptions.MinBlockSize.
//
// logger - Receives debug output for arena operations and errors that cannot be returned
//
// size - The minimum capacity of the first block
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, size int, options CreateOptions) (*Arena, error) {
	if size <= 0 {
		return nil, errors.Newf("arena size must be greater than 0, but was %d", size)
	}

	err := options.normalize()
	if err != nil {
		return nil, err
	}

	if options.Source == nil {
		options.Source = backing.NewHeapSource(backing.SourceOptions{})
	}

	initialSize := memutils.AlignUp(size, uint(options.MinBlockSize))
	if options.BlockSize == 0 {
		options.BlockSize = initialSize
	}

	arena := &Arena{
		logger:             logger,
		flags:              options.Flags,
		source:             options.Source,
		minBlockSize:       options.MinBlockSize,
		preferredBlockSize: options.BlockSize,
		defaultAlignment:   options.DefaultAlignment,
		nextBlockID:        1,
	}

	err = arena.createBlock(initialSize)
	if err != nil {
		return nil, err
	}

	logger.Debug("Arena::New",
		slog.Int("Size", initialSize),
		slog.String("Flags", arena.flags.String()))

	return arena, nil
}

// NewFromBuffer creates a new Arena that allocates exclusively from the provided buffer. The arena
// is always NonExpandable, and the buffer is never handed to a backing.Source, so it remains owned
// by the caller after Free.
func NewFromBuffer(logger *slog.Logger, buffer []byte, options CreateOptions) (*Arena, error) {
	if len(buffer) == 0 {
		return nil, errors.New("arena buffer must not be empty")
	}

	err := options.normalize()
	if err != nil {
		return nil, err
	}

	arena := &Arena{
		logger:             logger,
		flags:              options.Flags | CreateNonExpandable,
		minBlockSize:       options.MinBlockSize,
		preferredBlockSize: len(buffer),
		defaultAlignment:   options.DefaultAlignment,
		nextBlockID:        1,
	}

	arena.external = block.New(arena.nextBlockID, buffer)
	arena.nextBlockID++
	arena.top = arena.external
	arena.blockCount = 1

	logger.Debug("Arena::NewFromBuffer",
		slog.Int("Size", len(buffer)),
		slog.String("Flags", arena.flags.String()))

	return arena, nil
}
