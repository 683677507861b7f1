package typeclass

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goerrors "github.com/pixil98/go-errors"
	"github.com/pixil98/go-realm/internal/storage"
)

var (
	// ErrUnknownType is returned when a type name has no registered
	// definition. Recoverable: callers substitute the base definition.
	ErrUnknownType = errors.New("unknown typeclass")

	// ErrNoMethod is returned when neither a definition nor its ancestors
	// implement a requested method.
	ErrNoMethod = errors.New("method not implemented")
)

// IncompatibleRebindError reports a rebind to a type whose declared
// attributes the record does not carry. The rebind itself still applies;
// the named attributes materialize from their defaults on first access.
type IncompatibleRebindError struct {
	TypeName string
	Missing  []string
}

func (e *IncompatibleRebindError) Error() string {
	return fmt.Sprintf("rebind to %q leaves attributes unset: %s",
		e.TypeName, strings.Join(e.Missing, ", "))
}

// BaseTypeName is the fallback behavior substituted for unresolvable types.
const BaseTypeName = "base"

// Registry maps type names to behavior definitions. Registration normally
// happens at startup, but re-registration is allowed at runtime so
// behavior can be swapped live without touching stored records.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

func NewRegistry() *Registry {
	return &Registry{
		defs: map[string]*Definition{},
	}
}

// Register validates and adds a definition, replacing any previous
// definition with the same name. The parent must either already be
// registered or be registered before the definition is resolved.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if def.methods == nil {
		def.methods = map[string]Method{}
	}
	r.defs[def.Name] = def
	r.relink()

	return nil
}

// relink re-resolves all parent pointers after a registration change.
// Called with the write lock held.
func (r *Registry) relink() {
	for _, def := range r.defs {
		def.parent = nil
		if def.Parent != "" {
			def.parent = r.defs[def.Parent]
		}
	}
}

// Resolve returns the definition for a type name. Fails with ErrUnknownType
// if unregistered; callers are expected to fall back to Base and log.
func (r *Registry) Resolve(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("resolving %q: %w", name, ErrUnknownType)
	}

	return def, nil
}

// Base returns the fallback definition. The registry guarantees one exists
// once Register(NewDefinition(BaseTypeName, ...)) has run; until then a
// zero-behavior definition is returned so callers never get nil.
func (r *Registry) Base() *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if def, ok := r.defs[BaseTypeName]; ok {
		return def
	}
	return NewDefinition(BaseTypeName, "")
}

// Validate checks that all registered parents resolve and no chain loops.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	el := goerrors.NewErrorList()
	for name, def := range r.defs {
		if def.Parent != "" {
			if _, ok := r.defs[def.Parent]; !ok {
				el.Add(fmt.Errorf("typeclass %q: parent %q not registered", name, def.Parent))
			}
		}

		// Walk the chain; a visited set bounds loops.
		seen := map[string]bool{}
		for d := def; d != nil; d = d.parent {
			if seen[d.Name] {
				el.Add(fmt.Errorf("typeclass %q: parent chain loops at %q", name, d.Name))
				break
			}
			seen[d.Name] = true
		}
	}

	return el.Err()
}

// Rebind points a record at a new behavior class. Only the type-name field
// changes: identity and the attribute bag are untouched. If the new type
// declares attributes the record lacks, the rebind still applies and an
// IncompatibleRebindError naming them is returned for the caller to log.
func (r *Registry) Rebind(rec *storage.Record, newType string) error {
	def, err := r.Resolve(newType)
	if err != nil {
		return err
	}

	rec.TypeName = newType

	var missing []string
	for d := def; d != nil; d = d.parent {
		for _, a := range d.Attributes {
			if !rec.Attrs.Has(a.Name) {
				missing = append(missing, a.Name)
			}
		}
	}
	if len(missing) > 0 {
		return &IncompatibleRebindError{TypeName: newType, Missing: missing}
	}

	return nil
}

// Call invokes a named method against a receiver using the receiver's
// current definition. Returns ErrNoMethod if nothing in the chain
// implements it.
func (r *Registry) Call(ctx context.Context, def *Definition, self Receiver, method string, args ...string) (string, error) {
	m, owner, ok := def.Lookup(method)
	if !ok {
		return "", fmt.Errorf("%s.%s: %w", def.Name, method, ErrNoMethod)
	}

	return m(ctx, &Call{
		Self:   self,
		Method: method,
		Args:   args,
		def:    owner,
	})
}
