package storage

import (
	"encoding/json"
	"fmt"
)

// AttrBag is an entity's attribute bag: arbitrary serializable values keyed
// by name. Values are held as raw JSON so the bag round-trips through the
// store without knowing concrete types. Insertion order is irrelevant.
type AttrBag map[string]json.RawMessage

// Set stores v under key after marshalling it to JSON.
func (b *AttrBag) Set(k string, v any) error {
	if *b == nil {
		*b = AttrBag{}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal attribute %q: %w", k, err)
	}

	(*b)[k] = json.RawMessage(raw)
	return nil
}

// SetRaw stores an already-marshalled value under key.
func (b *AttrBag) SetRaw(k string, raw json.RawMessage) {
	if *b == nil {
		*b = AttrBag{}
	}
	(*b)[k] = raw
}

// Get unmarshals the attribute at key into out.
// Returns (found=false, nil) if not present.
func (b AttrBag) Get(key string, out any) (bool, error) {
	if b == nil {
		return false, nil
	}

	raw, ok := b[key]
	if !ok || len(raw) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("unmarshal attribute %q: %w", key, err)
	}
	return true, nil
}

// GetString returns the attribute at key as a string, or def if absent or
// not a string.
func (b AttrBag) GetString(key, def string) string {
	var s string
	if ok, err := b.Get(key, &s); !ok || err != nil {
		return def
	}
	return s
}

// Raw returns the raw JSON at key, if present.
func (b AttrBag) Raw(key string) (json.RawMessage, bool) {
	raw, ok := b[key]
	return raw, ok
}

// Has reports whether key is present.
func (b AttrBag) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Delete removes the attribute key, if present.
func (b AttrBag) Delete(key string) {
	if b == nil {
		return
	}
	delete(b, key)
}

func (b AttrBag) clone() AttrBag {
	if b == nil {
		return nil
	}
	c := make(AttrBag, len(b))
	for k, v := range b {
		c[k] = append(json.RawMessage(nil), v...)
	}
	return c
}
