package stack

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/stackarena/internal/utils"
	"golang.org/x/exp/slog"
)

// ErrNameTaken is returned from Catalog.Create when an arena with the same name already exists
var ErrNameTaken = errors.New("an arena with that name already exists")

// ErrUnknownArena is returned when a Catalog has no arena with the requested name
var ErrUnknownArena = errors.New("no arena with that name exists")

// CatalogCreateFlags indicate specific catalog behaviors to activate or deactivate
type CatalogCreateFlags int32

const (
	// CatalogExternallySynchronized ensures that the catalog will not be synchronized internally. The
	// consumer must guarantee it is used from only one goroutine at a time.
	CatalogExternallySynchronized CatalogCreateFlags = 1 << iota
)

// Catalog is a registry of named arenas shared between goroutines. The catalog synchronizes its own
// bookkeeping, but not the arenas in it: allocating from a shared arena requires the consumer's
// own synchronization.
type Catalog struct {
	logger *slog.Logger
	mutex  utils.OptionalRWMutex

	entries *catalogEntry
	byName  *swiss.Map[string, *catalogEntry]
}

type catalogEntry struct {
	name  string
	arena *Arena
	prev  *catalogEntry
	next  *catalogEntry
}

func NewCatalog(logger *slog.Logger, flags CatalogCreateFlags) *Catalog {
	return &Catalog{
		logger: logger,
		mutex: utils.OptionalRWMutex{
			UseMutex: flags&CatalogExternallySynchronized == 0,
		},
		byName: swiss.NewMap[string, *catalogEntry](8),
	}
}

// Create builds a new arena with New and registers it under name
func (c *Catalog) Create(name string, size int, options CreateOptions) (*Arena, error) {
	c.logger.Debug("Catalog::Create",
		slog.String("Name", name),
		slog.Int("Size", size),
		slog.String("Flags", options.Flags.String()))

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.byName.Has(name) {
		return nil, errors.Wrapf(ErrNameTaken, "arena %q", name)
	}

	arena, err := New(c.logger, size, options)
	if err != nil {
		return nil, err
	}

	c.insertAfterLock(name, arena)
	return arena, nil
}

// Register adds an existing arena to the catalog under name. The catalog takes ownership of it.
func (c *Catalog) Register(name string, arena *Arena) error {
	if arena == nil {
		return errors.New("attempted to register a nil arena")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.byName.Has(name) {
		return errors.Wrapf(ErrNameTaken, "arena %q", name)
	}

	c.insertAfterLock(name, arena)
	return nil
}

func (c *Catalog) insertAfterLock(name string, arena *Arena) {
	entry := &catalogEntry{
		name:  name,
		arena: arena,
		next:  c.entries,
	}
	if c.entries != nil {
		c.entries.prev = entry
	}
	c.entries = entry
	c.byName.Put(name, entry)
}

// Lookup returns the arena registered under name
func (c *Catalog) Lookup(name string) (*Arena, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, ok := c.byName.Get(name)
	if !ok {
		return nil, false
	}
	return entry.arena, true
}

// Count returns the number of arenas in the catalog
func (c *Catalog) Count() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.byName.Count()
}

// Names returns the names of all arenas in the catalog, most recently added first
func (c *Catalog) Names() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, c.byName.Count())
	for entry := c.entries; entry != nil; entry = entry.next {
		names = append(names, entry.name)
	}
	return names
}

// Destroy frees the arena registered under name and removes it from the catalog
func (c *Catalog) Destroy(name string) error {
	c.logger.Debug("Catalog::Destroy", slog.String("Name", name))

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.byName.Get(name)
	if !ok {
		return errors.Wrapf(ErrUnknownArena, "arena %q", name)
	}

	c.removeAfterLock(entry)
	return entry.arena.Free()
}

func (c *Catalog) removeAfterLock(entry *catalogEntry) {
	next := entry.next
	if entry.next != nil {
		entry.next.prev = entry.prev
	}
	if entry.prev != nil {
		entry.prev.next = next
	}

	if c.entries == entry {
		c.entries = next
	}

	entry.prev = nil
	entry.next = nil
	c.byName.Delete(entry.name)
}

// Close frees every arena in the catalog and empties it
func (c *Catalog) Close() error {
	c.logger.Debug("Catalog::Close")

	c.mutex.Lock()
	defer c.mutex.Unlock()

	var err error
	for c.entries != nil {
		entry := c.entries
		c.removeAfterLock(entry)

		freeErr := entry.arena.Free()
		if freeErr != nil {
			c.logger.Error("error freeing arena while closing catalog", slog.String("Name", entry.name), slog.Any("error", freeErr))
			err = errors.CombineErrors(err, freeErr)
		}
	}

	return err
}
