package stack

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/stackarena/memutils/backing"
)

func TestCatalogCreateLookupDestroy(t *testing.T) {
	catalog := NewCatalog(testLogger(), 0)

	first, err := catalog.Create("first", 4096, CreateOptions{})
	require.NoError(t, err)
	second, err := catalog.Create("second", 4096, CreateOptions{Flags: CreateNonExpandable})
	require.NoError(t, err)

	_, err = catalog.Create("first", 4096, CreateOptions{})
	require.ErrorIs(t, err, ErrNameTaken)

	lookup, ok := catalog.Lookup("second")
	require.True(t, ok)
	require.Same(t, second, lookup)

	_, ok = catalog.Lookup("third")
	require.False(t, ok)

	require.Equal(t, 2, catalog.Count())
	require.Equal(t, []string{"second", "first"}, catalog.Names())

	require.NoError(t, catalog.Destroy("first"))
	require.Equal(t, StateFreed, first.State())
	require.Equal(t, []string{"second"}, catalog.Names())
	require.ErrorIs(t, catalog.Destroy("first"), ErrUnknownArena)

	require.NoError(t, catalog.Close())
	require.Equal(t, StateFreed, second.State())
	require.Equal(t, 0, catalog.Count())
	require.Empty(t, catalog.Names())
}

func TestCatalogRegister(t *testing.T) {
	catalog := NewCatalog(testLogger(), CatalogExternallySynchronized)

	source := backing.NewHeapSource(backing.SourceOptions{})
	arena, err := New(testLogger(), 4096, CreateOptions{Source: source})
	require.NoError(t, err)

	require.Error(t, catalog.Register("nil", nil))
	require.NoError(t, catalog.Register("registered", arena))
	require.ErrorIs(t, catalog.Register("registered", arena), ErrNameTaken)

	for i := 0; i < 3; i++ {
		_, err = catalog.Create(fmt.Sprintf("arena-%d", i), 4096, CreateOptions{Source: source})
		require.NoError(t, err)
	}
	require.Equal(t, 4, source.Budget().BlockCount)

	require.NoError(t, catalog.Destroy("arena-1"))
	require.Equal(t, []string{"arena-2", "arena-0", "registered"}, catalog.Names())

	require.NoError(t, catalog.Close())
	require.Equal(t, 0, source.Budget().BlockCount)
	require.Equal(t, StateFreed, arena.State())
}

func TestCatalogConcurrentAccess(t *testing.T) {
	catalog := NewCatalog(testLogger(), 0)
	defer func() {
		require.NoError(t, catalog.Close())
	}()

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			for i := 0; i < 20; i++ {
				name := fmt.Sprintf("worker-%d-%d", worker, i)
				arena, err := catalog.Create(name, 4096, CreateOptions{})
				if err != nil {
					t.Error(err)
					return
				}

				lookup, ok := catalog.Lookup(name)
				if !ok || lookup != arena {
					t.Errorf("lookup of %s returned the wrong arena", name)
					return
				}

				if i%2 == 0 {
					if err := catalog.Destroy(name); err != nil {
						t.Error(err)
						return
					}
				}
			}
		}(worker)
	}
	wg.Wait()

	require.Equal(t, 8*10, catalog.Count())
	require.Len(t, catalog.Names(), 8*10)
}
