package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pixil98/go-errors"
)

// MergeType controls how a set combines with the accumulated result.
type MergeType int

const (
	// MergeUnion adds the set's commands; key collisions keep the higher
	// command priority.
	MergeUnion MergeType = iota
	// MergeReplace discards accumulated commands under the set's key
	// prefix before adding its own.
	MergeReplace
	// MergeRemove deletes the set's keys from the accumulated result,
	// regardless of priority. The set's handlers are not added.
	MergeRemove
)

func (mt MergeType) String() string {
	switch mt {
	case MergeUnion:
		return "union"
	case MergeReplace:
		return "replace"
	case MergeRemove:
		return "remove"
	default:
		return fmt.Sprintf("MergeType(%d)", int(mt))
	}
}

// Set is an ordered collection of commands contributed by one source
// (a typeclass, a carried item, a location, or the session).
type Set struct {
	Name     string
	Priority int
	Merge    MergeType

	// KeyPrefix scopes MergeReplace. Empty means "replace everything".
	KeyPrefix string

	Commands []*Command
}

func (s *Set) Validate() error {
	el := errors.NewErrorList()

	if s.Name == "" {
		el.Add(fmt.Errorf("set name not set"))
	}

	seen := map[string]bool{}
	for _, c := range s.Commands {
		el.Add(c.Validate())
		if c.Key != "" && seen[c.Key] {
			el.Add(fmt.Errorf("set %q: duplicate key %q", s.Name, c.Key))
		}
		seen[c.Key] = true
	}

	return el.Err()
}

// Contribution is one set tagged with the source it came from, in merge
// precedence order (session first, then entity, location, carried items).
type Contribution struct {
	Source string
	Set    *Set
}

// Warning flags an equal-priority key collision. The merge resolves it
// deterministically (later precedence wins) instead of failing, but
// callers must be able to detect that it happened.
type Warning struct {
	Key     string
	Kept    string // source whose command survived
	Dropped string // source whose command was displaced
}

func (w Warning) String() string {
	return fmt.Sprintf("key %q: equal priority collision, %s displaced %s", w.Key, w.Kept, w.Dropped)
}

type entry struct {
	cmd    *Command
	source string
	order  int // merge precedence position, for deterministic ties
}

// Merged is the flat key→command mapping produced by one merge pass.
// It is built fresh on every dispatch and never cached.
type Merged struct {
	entries  map[string]*entry
	warnings []Warning
}

// Warnings returns the equal-priority collision warnings from the merge.
func (m *Merged) Warnings() []Warning {
	return m.warnings
}

// Keys returns the surviving invocation keys, sorted.
func (m *Merged) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the surviving command for a key.
func (m *Merged) Get(key string) (*Command, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	return e.cmd, true
}

// Match finds the command for an input line. Keys are tried longest-first
// so "get all" beats "get"; aliases are only consulted when no key
// matches. The remainder of the line is returned as the argument tail.
func (m *Merged) Match(input string) (*Command, string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, "", false
	}

	type candidate struct {
		token string
		e     *entry
	}

	var keys, aliases []candidate
	for _, e := range m.entries {
		keys = append(keys, candidate{token: e.cmd.Key, e: e})
		for _, a := range e.cmd.Aliases {
			aliases = append(aliases, candidate{token: a, e: e})
		}
	}

	match := func(cands []candidate) (*Command, string, bool) {
		// Longest token first; ties break toward earliest merge precedence.
		sort.Slice(cands, func(i, j int) bool {
			if len(cands[i].token) != len(cands[j].token) {
				return len(cands[i].token) > len(cands[j].token)
			}
			return cands[i].e.order < cands[j].e.order
		})
		lower := strings.ToLower(input)
		for _, c := range cands {
			if lower == c.token {
				return c.e.cmd, "", true
			}
			if strings.HasPrefix(lower, c.token+" ") {
				return c.e.cmd, strings.TrimSpace(input[len(c.token):]), true
			}
		}
		return nil, "", false
	}

	if cmd, args, ok := match(keys); ok {
		return cmd, args, true
	}
	return match(aliases)
}

// MergeSets folds the contributions pairwise, in order, into a single flat
// mapping. The function is side-effect free: the same ordered list of
// contributions always yields the same mapping and the same warnings.
func MergeSets(contribs []Contribution) *Merged {
	m := &Merged{entries: map[string]*entry{}}

	for i, contrib := range contribs {
		set := contrib.Set
		if set == nil {
			continue
		}

		switch set.Merge {
		case MergeRemove:
			for _, c := range set.Commands {
				delete(m.entries, c.Key)
			}

		case MergeReplace:
			for key := range m.entries {
				if strings.HasPrefix(key, set.KeyPrefix) {
					delete(m.entries, key)
				}
			}
			for _, c := range set.Commands {
				m.entries[c.Key] = &entry{cmd: c, source: contrib.Source, order: i}
			}

		default: // MergeUnion
			for _, c := range set.Commands {
				existing, ok := m.entries[c.Key]
				if !ok {
					m.entries[c.Key] = &entry{cmd: c, source: contrib.Source, order: i}
					continue
				}

				switch {
				case c.Priority > existing.cmd.Priority:
					m.entries[c.Key] = &entry{cmd: c, source: contrib.Source, order: i}
				case c.Priority == existing.cmd.Priority:
					// Deterministic: the later-precedence source wins,
					// flagged so configuration mistakes are visible.
					m.warnings = append(m.warnings, Warning{
						Key:     c.Key,
						Kept:    contrib.Source,
						Dropped: existing.source,
					})
					m.entries[c.Key] = &entry{cmd: c, source: contrib.Source, order: i}
				}
			}
		}
	}

	return m
}
