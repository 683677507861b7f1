package game

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pixil98/go-realm/internal/storage"
	"github.com/pixil98/go-realm/internal/typeclass"
)

// World is the single source of truth for live entities. All access goes
// through its methods to keep the entity table consistent; per-entity
// mutation serialization is the job of the lock table, not this mutex.
type World struct {
	mu    sync.RWMutex
	store storage.RecordStore
	types *typeclass.Registry

	entities  map[storage.Identifier]*Entity
	destroyed map[storage.Identifier]bool
	seq       uint64

	locks *LockTable
}

func NewWorld(store storage.RecordStore, types *typeclass.Registry) (*World, error) {
	w := &World{
		store:     store,
		types:     types,
		entities:  map[storage.Identifier]*Entity{},
		destroyed: map[storage.Identifier]bool{},
		locks:     NewLockTable(),
	}

	// Hydrate the live table from the store
	ids, err := store.Query(func(*storage.Record) bool { return true })
	if err != nil {
		return nil, fmt.Errorf("querying store: %w", err)
	}
	for _, id := range ids {
		rec, err := store.Load(id)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", id, err)
		}
		w.entities[id] = &Entity{rec: rec, world: w}
		if rec.Seq >= w.seq {
			w.seq = rec.Seq + 1
		}
	}

	return w, nil
}

// Types returns the typeclass registry the world resolves behavior from.
func (w *World) Types() *typeclass.Registry {
	return w.types
}

// Locks returns the per-entity mutation lock table.
func (w *World) Locks() *LockTable {
	return w.locks
}

// Store returns the backing record store.
func (w *World) Store() storage.RecordStore {
	return w.store
}

// Create allocates a new identity, binds it to the given typeclass, and
// persists the fresh record before returning the live entity.
func (w *World) Create(typeName string, attrs map[string]any) (*Entity, error) {
	if _, err := w.types.Resolve(typeName); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	rec := &storage.Record{
		Id:       storage.Identifier(uuid.New().String()),
		TypeName: typeName,
		Seq:      w.seq,
	}
	w.seq++

	for k, v := range attrs {
		if err := rec.Attrs.Set(k, v); err != nil {
			return nil, err
		}
	}

	if err := w.store.Save(rec.Id, rec); err != nil {
		return nil, err
	}

	e := &Entity{rec: rec, world: w}
	w.entities[rec.Id] = e
	return e, nil
}

// Get returns the live entity for an identity. Destroyed identities fail
// with ErrEntityDestroyed, unknown ones with storage.ErrNotFound.
func (w *World) Get(id storage.Identifier) (*Entity, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.destroyed[id] {
		return nil, fmt.Errorf("entity %q: %w", id, ErrEntityDestroyed)
	}
	e, ok := w.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %q: %w", id, storage.ErrNotFound)
	}
	return e, nil
}

// Destroy deletes an entity. The identity becomes permanently invalid;
// it is never reused because identities are random, and the destroyed set
// keeps stale references failing distinctly from never-known ones.
func (w *World) Destroy(id storage.Identifier) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.entities[id]; !ok {
		return fmt.Errorf("entity %q: %w", id, storage.ErrNotFound)
	}

	if err := w.store.Delete(id); err != nil {
		return err
	}

	delete(w.entities, id)
	w.destroyed[id] = true
	return nil
}

// ContentsOf returns the entities located in the given entity, in stable
// creation order.
func (w *World) ContentsOf(id storage.Identifier) []*Entity {
	w.mu.RLock()
	all := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		all = append(all, e)
	}
	w.mu.RUnlock()

	// Location is read outside the world mutex so per-entity record locks
	// never nest inside it.
	var found []*Entity
	for _, e := range all {
		if e.locationId() == id {
			found = append(found, e)
		}
	}
	sortBySeq(found)
	return found
}

// FindTagged returns the entities carrying a tag, in stable creation
// order. Backed by the store's query contract.
func (w *World) FindTagged(tag string) ([]*Entity, error) {
	ids, err := w.store.Query(func(rec *storage.Record) bool {
		return rec.HasTag(tag)
	})
	if err != nil {
		return nil, err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	var found []*Entity
	for _, id := range ids {
		if e, ok := w.entities[id]; ok {
			found = append(found, e)
		}
	}
	sortBySeq(found)
	return found, nil
}

// ForEach calls fn for every live entity in stable creation order.
func (w *World) ForEach(fn func(*Entity)) {
	w.mu.RLock()
	all := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		all = append(all, e)
	}
	w.mu.RUnlock()

	sortBySeq(all)
	for _, e := range all {
		fn(e)
	}
}

// Persist saves the records for the given entities. On the first failure
// nothing further is written and the error is returned; callers are
// expected to roll back in-memory state from their snapshots.
func (w *World) Persist(entities ...*Entity) error {
	for _, e := range entities {
		if err := e.save(w.store); err != nil {
			return err
		}
	}
	return nil
}

// Tick flushes every live entity to the store. Run by the driver so
// attribute churn between settles still lands on disk periodically. Each
// entity is flushed under its mutation lock so the flush only ever sees
// settled states, never the middle of a command's mutation batch.
func (w *World) Tick(ctx context.Context) error {
	var entities []*Entity
	w.mu.RLock()
	for _, e := range w.entities {
		entities = append(entities, e)
	}
	w.mu.RUnlock()

	for _, e := range entities {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		release := w.locks.Acquire(e.Id())
		err := e.save(w.store)
		release()
		if err != nil {
			return err
		}
	}
	return nil
}

func sortBySeq(entities []*Entity) {
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].rec.Seq < entities[j].rec.Seq
	})
}

// LockTable serializes conflicting mutations per entity. Multi-entity
// acquisition sorts identities ascending so overlapping commands always
// lock in the same order and cannot deadlock.
type LockTable struct {
	mu    sync.Mutex
	locks map[storage.Identifier]*sync.Mutex
}

func NewLockTable() *LockTable {
	return &LockTable{
		locks: map[storage.Identifier]*sync.Mutex{},
	}
}

func (t *LockTable) lockFor(id storage.Identifier) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	return l
}

// Acquire locks all given identities in canonical (ascending) order and
// returns a release function. Duplicate identities are collapsed. The
// release function is safe to call exactly once on every exit path.
func (t *LockTable) Acquire(ids ...storage.Identifier) (release func()) {
	uniq := slices.Clone(ids)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)

	held := make([]*sync.Mutex, 0, len(uniq))
	for _, id := range uniq {
		l := t.lockFor(id)
		l.Lock()
		held = append(held, l)
	}

	return func() {
		// Unlock in reverse acquisition order
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
