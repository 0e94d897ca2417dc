package stack

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// ErrNoScratchAvailable is returned from ScratchSet.Get when every arena in the set is in conflict
var ErrNoScratchAvailable = errors.New("no scratch arena is free of conflicts")

// ScratchSet is a small set of arenas owned by one goroutine, used for short-lived working memory.
// A function that needs scratch memory asks for an arena that does not conflict with any arena its
// caller is still using, so an inner call never rolls back memory that an outer call depends on.
//
// A ScratchSet is not safe for concurrent use. Create one per goroutine and pass it down the call
// chain, either directly or with WithScratchSet.
type ScratchSet struct {
	logger *slog.Logger
	arenas []*Arena
}

// DefaultScratchCount is the number of arenas in a ScratchSet when none is specified
const DefaultScratchCount int = 2

// NewScratchSet creates count arenas of the provided size and options
func NewScratchSet(logger *slog.Logger, count int, size int, options CreateOptions) (*ScratchSet, error) {
	if count <= 0 {
		count = DefaultScratchCount
	}

	set := &ScratchSet{
		logger: logger,
		arenas: make([]*Arena, 0, count),
	}

	for i := 0; i < count; i++ {
		arena, err := New(logger, size, options)
		if err != nil {
			freeErr := set.Free()
			if freeErr != nil {
				logger.Error("error freeing scratch set after creation failure", slog.Any("error", freeErr))
			}
			return nil, err
		}
		set.arenas = append(set.arenas, arena)
	}

	return set, nil
}

// Arenas returns every arena in the set
func (s *ScratchSet) Arenas() []*Arena { return s.arenas }

// Get returns a Scratch on the first arena in the set that is not one of conflicts. The Scratch
// holds a temporary region on that arena which is rolled back by Scratch.Release.
func (s *ScratchSet) Get(conflicts ...*Arena) (*Scratch, error) {
	for _, arena := range s.arenas {
		if containsArena(conflicts, arena) {
			continue
		}

		return &Scratch{region: arena.BeginRegion()}, nil
	}

	return nil, errors.Wrapf(ErrNoScratchAvailable, "%d arenas, %d conflicts", len(s.arenas), len(conflicts))
}

// Free frees every arena in the set
func (s *ScratchSet) Free() error {
	var err error
	for _, arena := range s.arenas {
		err = errors.CombineErrors(err, arena.Free())
	}
	s.arenas = nil
	return err
}

func containsArena(arenas []*Arena, target *Arena) bool {
	for _, arena := range arenas {
		if arena == target {
			return true
		}
	}
	return false
}

// Scratch is a temporary region on an arena borrowed from a ScratchSet
type Scratch struct {
	region *Region
}

func (s *Scratch) Arena() *Arena   { return s.region.arena }
func (s *Scratch) Region() *Region { return s.region }

// Release rolls the scratch arena back to where it was when the Scratch was obtained
func (s *Scratch) Release() error {
	return s.region.End()
}

type scratchSetKey struct{}

// WithScratchSet returns a copy of ctx carrying the provided ScratchSet
func WithScratchSet(ctx context.Context, set *ScratchSet) context.Context {
	return context.WithValue(ctx, scratchSetKey{}, set)
}

// ScratchSetFromContext returns the ScratchSet carried by ctx, if any
func ScratchSetFromContext(ctx context.Context) (*ScratchSet, bool) {
	set, ok := ctx.Value(scratchSetKey{}).(*ScratchSet)
	return set, ok && set != nil
}
