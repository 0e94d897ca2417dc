package backing_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/stackarena/memutils/backing"
)

func testSource(t *testing.T, create func(options backing.SourceOptions) backing.Source) {
	var allocated, freed int
	source := create(backing.SourceOptions{
		SizeLimit: 3000,
		Callbacks: &backing.MemoryCallbackOptions{
			Allocate: func(source backing.Source, memory []byte, userData any) {
				allocated += len(memory)
				require.Equal(t, "user", userData)
			},
			Free: func(source backing.Source, memory []byte, userData any) {
				freed += len(memory)
			},
			UserData: "user",
		},
	})

	first, err := source.AllocateBlock(1000)
	require.NoError(t, err)
	require.Len(t, first, 1000)
	for _, b := range first {
		require.Zero(t, b)
	}
	first[999] = 1

	second, err := source.AllocateBlock(2000)
	require.NoError(t, err)
	require.Equal(t, backing.Budget{BlockCount: 2, BlockBytes: 3000, Limit: 3000}, source.Budget())

	_, err = source.AllocateBlock(1)
	require.True(t, errors.Is(err, backing.ErrHeapLimit))
	require.Equal(t, backing.Budget{BlockCount: 2, BlockBytes: 3000, Limit: 3000}, source.Budget())

	require.NoError(t, source.FreeBlock(first))
	require.NoError(t, source.FreeBlock(second))
	require.Equal(t, backing.Budget{BlockCount: 0, BlockBytes: 0, Limit: 3000}, source.Budget())
	require.Equal(t, 3000, allocated)
	require.Equal(t, 3000, freed)

	_, err = source.AllocateBlock(0)
	require.Error(t, err)
	require.Error(t, source.FreeBlock(nil))
}

func TestHeapSource(t *testing.T) {
	testSource(t, func(options backing.SourceOptions) backing.Source {
		return backing.NewHeapSource(options)
	})
}

func TestMapSource(t *testing.T) {
	testSource(t, func(options backing.SourceOptions) backing.Source {
		return backing.NewMapSource(options)
	})
}

func TestUnlimitedSource(t *testing.T) {
	source := backing.NewHeapSource(backing.SourceOptions{})
	memory, err := source.AllocateBlock(1 << 20)
	require.NoError(t, err)
	require.Equal(t, -1, source.Budget().Limit)
	require.NoError(t, source.FreeBlock(memory))
}
