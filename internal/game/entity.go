package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-realm/internal/storage"
	"github.com/pixil98/go-realm/internal/typeclass"
)

// AttrName is the well-known attribute holding an entity's display name.
const AttrName = "name"

// AttrAliases holds alternative keywords search will match against.
const AttrAliases = "aliases"

// Entity is the identity-stable handle over a stored record and its
// currently bound behavior class. The definition is re-resolved from the
// registry on every access, so live re-registration takes effect without
// reloading records.
type Entity struct {
	rec   *storage.Record
	world *World

	// mu guards the record's contents. The lock table serializes whole
	// command transactions; this mutex keeps individual reads and writes
	// coherent against the periodic flush and against lazy attribute
	// materialization, which writes on a read path.
	mu sync.Mutex
}

func (e *Entity) Id() storage.Identifier {
	return e.rec.Id
}

// Record exposes the underlying record for callers that hold the entity's
// mutation lock (or that know no mutation is in flight, like tests).
func (e *Entity) Record() *storage.Record {
	return e.rec
}

// TypeName returns the name of the currently bound behavior class.
func (e *Entity) TypeName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.TypeName
}

// Definition resolves the entity's behavior class. An unregistered type
// name is recoverable: the base definition is substituted and logged.
func (e *Entity) Definition() *typeclass.Definition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.definitionLocked()
}

func (e *Entity) definitionLocked() *typeclass.Definition {
	def, err := e.world.types.Resolve(e.rec.TypeName)
	if err != nil {
		slog.Warn("unresolved typeclass, substituting base",
			"entity", e.rec.Id, "type", e.rec.TypeName, "error", err)
		return e.world.types.Base()
	}
	return def
}

// SetType rebinds the entity to a new behavior class. Identity and the
// attribute bag are untouched. An IncompatibleRebindError is logged and
// swallowed: the rebind stands and missing attributes default lazily.
func (e *Entity) SetType(newType string) error {
	e.mu.Lock()
	err := e.world.types.Rebind(e.rec, newType)
	e.mu.Unlock()

	if err != nil {
		var ire *typeclass.IncompatibleRebindError
		if errors.As(err, &ire) {
			slog.Warn("rebind with unset attributes",
				"entity", e.rec.Id, "type", newType, "missing", ire.Missing)
			return nil
		}
		return err
	}
	return nil
}

// Name returns the display name attribute, falling back to the identity.
func (e *Entity) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Attrs.GetString(AttrName, e.rec.Id.String())
}

// Aliases returns the alias keywords, if any.
func (e *Entity) Aliases() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var aliases []string
	if ok, err := e.rec.Attrs.Get(AttrAliases, &aliases); !ok || err != nil {
		return nil
	}
	return aliases
}

// Attr reads an attribute into out. If the record lacks the attribute but
// the bound definition (or an ancestor) declares a default, the default is
// materialized into the bag first.
func (e *Entity) Attr(key string, out any) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.rec.Attrs.Has(key) {
		if def, ok := e.definitionLocked().AttrDefault(key); ok && def != nil {
			e.rec.Attrs.SetRaw(key, append(json.RawMessage(nil), def...))
		}
	}
	return e.rec.Attrs.Get(key, out)
}

// SetAttr writes an attribute.
func (e *Entity) SetAttr(key string, val any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Attrs.Set(key, val)
}

// Tags returns a copy of the entity's tag set.
func (e *Entity) Tags() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.rec.Tags...)
}

func (e *Entity) HasTag(tag string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.HasTag(tag)
}

func (e *Entity) AddTag(tag string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec.AddTag(tag)
}

func (e *Entity) RemoveTag(tag string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec.RemoveTag(tag)
}

// Location resolves the entity's location reference. The reference is
// weak: nil is returned for an empty or stale reference.
func (e *Entity) Location() *Entity {
	id := e.locationId()
	if id == "" {
		return nil
	}
	loc, err := e.world.Get(id)
	if err != nil {
		return nil
	}
	return loc
}

func (e *Entity) locationId() storage.Identifier {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Location
}

// SetLocation moves the entity. A nil destination clears the reference.
func (e *Entity) SetLocation(dest *Entity) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if dest == nil {
		e.rec.Location = ""
		return
	}
	e.rec.Location = dest.Id()
}

// Home resolves the fallback location reference, nil if unset or stale.
func (e *Entity) Home() *Entity {
	e.mu.Lock()
	id := e.rec.Home
	e.mu.Unlock()

	if id == "" {
		return nil
	}
	home, err := e.world.Get(id)
	if err != nil {
		return nil
	}
	return home
}

func (e *Entity) SetHome(home *Entity) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if home == nil {
		e.rec.Home = ""
		return
	}
	e.rec.Home = home.Id()
}

// Snapshot returns a deep copy of the record for rollback.
func (e *Entity) Snapshot() *storage.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone()
}

// Restore puts the mutable record fields back to a snapshot taken with
// Snapshot. Identity and the sequence counter never change, so they are
// left alone.
func (e *Entity) Restore(snap *storage.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rec.TypeName = snap.TypeName
	e.rec.Attrs = snap.Attrs
	e.rec.Tags = snap.Tags
	e.rec.Location = snap.Location
	e.rec.Home = snap.Home
}

// save writes the record to the store while holding the record mutex, so
// marshaling never observes a write in progress.
func (e *Entity) save(store storage.RecordStore) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return store.Save(e.rec.Id, e.rec)
}

// Contents returns the entities whose location is this entity, in stable
// creation order.
func (e *Entity) Contents() []*Entity {
	return e.world.ContentsOf(e.Id())
}

// Call invokes a typeclass method on this entity.
func (e *Entity) Call(ctx context.Context, method string, args ...string) (string, error) {
	return e.world.types.Call(ctx, e.Definition(), e, method, args...)
}

// Can reports whether the entity's behavior class implements a method.
func (e *Entity) Can(method string) bool {
	_, _, ok := e.Definition().Lookup(method)
	return ok
}

func (e *Entity) String() string {
	return fmt.Sprintf("%s(%s)", e.Name(), e.rec.Id)
}
