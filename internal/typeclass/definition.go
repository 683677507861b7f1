package typeclass

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-realm/internal/storage"
)

// Receiver is the view of an entity a typeclass method operates on. The
// concrete entity type lives a package up; methods only need identity and
// attribute access here.
type Receiver interface {
	Id() storage.Identifier
	Name() string
	Attr(key string, out any) (bool, error)
	SetAttr(key string, val any) error
}

// Method is a single capability on a typeclass definition.
// Calls receive the full call frame so a body can invoke its parent's
// same-named behavior via call.Super.
type Method func(ctx context.Context, call *Call) (string, error)

// AttrSpec declares an attribute a typeclass expects on its instances,
// with the default used to lazily initialize records that lack it.
type AttrSpec struct {
	Name    string          `json:"name"`
	Default json.RawMessage `json:"default,omitempty"`
}

// Definition is a named, swappable behavior class. Definitions form
// single-parent chains; method lookup walks most-derived first.
type Definition struct {
	Name   string
	Parent string

	// Attributes instances of this type are expected to carry.
	Attributes []AttrSpec

	methods map[string]Method

	// resolved parent pointer, filled in by the registry
	parent *Definition
}

func NewDefinition(name, parent string) *Definition {
	return &Definition{
		Name:    name,
		Parent:  parent,
		methods: map[string]Method{},
	}
}

// On attaches a method to the definition, returning it for chaining.
func (d *Definition) On(name string, m Method) *Definition {
	d.methods[name] = m
	return d
}

// Declare adds an expected attribute with its default value.
func (d *Definition) Declare(name string, def any) *Definition {
	raw, err := json.Marshal(def)
	if err != nil {
		// Defaults are declared in code with marshallable literals; a
		// failure here is a programming error caught at registration.
		raw = nil
	}
	d.Attributes = append(d.Attributes, AttrSpec{Name: name, Default: raw})
	return d
}

func (d *Definition) Validate() error {
	el := errors.NewErrorList()

	if d.Name == "" {
		el.Add(fmt.Errorf("definition name must be set"))
	}
	if d.Name == d.Parent {
		el.Add(fmt.Errorf("definition %q cannot be its own parent", d.Name))
	}
	for i, a := range d.Attributes {
		if a.Name == "" {
			el.Add(fmt.Errorf("definition %q: attribute %d name must be set", d.Name, i))
		}
	}

	return el.Err()
}

// Lookup finds the named method, walking the parent chain from this
// definition toward the root. Most-derived wins. The returned definition
// is the one that owns the winning method.
func (d *Definition) Lookup(name string) (Method, *Definition, bool) {
	for def := d; def != nil; def = def.parent {
		if m, ok := def.methods[name]; ok {
			return m, def, true
		}
	}
	return nil, nil, false
}

// AttrDefault returns the declared default for an attribute, searching the
// parent chain. Found is false if no definition in the chain declares it.
func (d *Definition) AttrDefault(name string) (json.RawMessage, bool) {
	for def := d; def != nil; def = def.parent {
		for _, a := range def.Attributes {
			if a.Name == name {
				return a.Default, true
			}
		}
	}
	return nil, false
}

// Capabilities returns the full method-name set visible on this definition,
// including inherited ones.
func (d *Definition) Capabilities() []string {
	seen := map[string]bool{}
	var names []string
	for def := d; def != nil; def = def.parent {
		for name := range def.methods {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Call is one invocation frame of a typeclass method.
type Call struct {
	Self   Receiver
	Method string
	Args   []string

	// def is the definition that owns the currently executing body.
	def *Definition
}

// Super invokes the parent chain's implementation of the same method.
// Returns ErrNoMethod if no ancestor implements it.
func (c *Call) Super(ctx context.Context) (string, error) {
	if c.def == nil {
		return "", fmt.Errorf("%s: %w", c.Method, ErrNoMethod)
	}
	if c.def.parent == nil {
		return "", fmt.Errorf("%s.%s: %w", c.def.Name, c.Method, ErrNoMethod)
	}

	m, owner, ok := c.def.parent.Lookup(c.Method)
	if !ok {
		return "", fmt.Errorf("%s.%s: %w", c.def.parent.Name, c.Method, ErrNoMethod)
	}

	sub := &Call{
		Self:   c.Self,
		Method: c.Method,
		Args:   c.Args,
		def:    owner,
	}
	return m(ctx, sub)
}
