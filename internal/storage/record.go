package storage

import (
	"fmt"
	"regexp"

	"github.com/pixil98/go-errors"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9-]*$`)

type Identifier string

func (id Identifier) String() string {
	return string(id)
}

// Record is the durable form of a game entity. The identity is immutable
// for the life of the record; everything else may change. TypeName is a
// reference into the typeclass registry and is re-resolved on every access,
// never bound at load time.
type Record struct {
	Id       Identifier `json:"id"`
	TypeName string     `json:"type"`
	Attrs    AttrBag    `json:"attrs,omitempty"`
	Tags     []string   `json:"tags,omitempty"`

	// Location and Home are weak references: they may name a destroyed
	// entity and must be re-validated on use.
	Location Identifier `json:"location,omitempty"`
	Home     Identifier `json:"home,omitempty"`

	// Seq is the global creation sequence number. Search uses it as the
	// stable discovery order for ordinal queries.
	Seq uint64 `json:"seq"`
}

func (r *Record) Validate() error {
	el := errors.NewErrorList()

	if r.Id == "" {
		el.Add(fmt.Errorf("record id must be set"))
	}
	if !identifierPattern.MatchString(r.Id.String()) {
		el.Add(fmt.Errorf("record id must be alphanumeric"))
	}
	if r.TypeName == "" {
		el.Add(fmt.Errorf("record type must be set"))
	}

	return el.Err()
}

// Clone returns a deep copy of the record. The dispatcher snapshots records
// before executing a command so a failed settle can roll back in memory.
func (r *Record) Clone() *Record {
	c := *r
	c.Attrs = r.Attrs.clone()
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	return &c
}

// HasTag reports whether the record carries the given tag.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag adds a tag if not already present.
func (r *Record) AddTag(tag string) {
	if !r.HasTag(tag) {
		r.Tags = append(r.Tags, tag)
	}
}

// RemoveTag removes a tag if present.
func (r *Record) RemoveTag(tag string) {
	for i, t := range r.Tags {
		if t == tag {
			r.Tags = append(r.Tags[:i], r.Tags[i+1:]...)
			return
		}
	}
}
