package stack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func readyScratchSet(t *testing.T, count int) *ScratchSet {
	set, err := NewScratchSet(testLogger(), count, 64*1024, CreateOptions{})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, set.Free())
	})
	return set
}

func TestScratchConflicts(t *testing.T) {
	set := readyScratchSet(t, 0)
	require.Len(t, set.Arenas(), DefaultScratchCount)

	outer, err := set.Get()
	require.NoError(t, err)
	require.Same(t, set.Arenas()[0], outer.Arena())

	outerAlloc, err := outer.Arena().PushHead(128)
	require.NoError(t, err)
	for i := range outerAlloc.Bytes() {
		outerAlloc.Bytes()[i] = 7
	}

	inner, err := set.Get(outer.Arena())
	require.NoError(t, err)
	require.NotSame(t, outer.Arena(), inner.Arena())

	innerAlloc, err := inner.Arena().PushHead(128)
	require.NoError(t, err)
	for i := range innerAlloc.Bytes() {
		innerAlloc.Bytes()[i] = 9
	}
	require.NoError(t, inner.Release())

	// The inner scratch never touched the outer scratch's memory
	for _, b := range outerAlloc.Bytes() {
		require.Equal(t, byte(7), b)
	}

	_, err = set.Get(set.Arenas()...)
	require.ErrorIs(t, err, ErrNoScratchAvailable)

	require.NoError(t, outer.Release())
	require.Equal(t, 0, outer.Arena().Top().Head())
	require.True(t, outer.Region().Closed())
}

func TestScratchSetContext(t *testing.T) {
	set := readyScratchSet(t, 3)

	_, ok := ScratchSetFromContext(context.Background())
	require.False(t, ok)

	ctx := WithScratchSet(context.Background(), set)
	fromCtx, ok := ScratchSetFromContext(ctx)
	require.True(t, ok)
	require.Same(t, set, fromCtx)

	_, ok = ScratchSetFromContext(WithScratchSet(context.Background(), nil))
	require.False(t, ok)
}

func TestScratchSetCreationFailure(t *testing.T) {
	_, err := NewScratchSet(testLogger(), 2, 0, CreateOptions{})
	require.Error(t, err)
}
