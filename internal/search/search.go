// Package search resolves caller queries to entities. Matching prefers
// exact name/alias hits over substring hits, supports ordinal prefixes
// ("2-sword" selects the second match in creation order), and reports
// ambiguity back to the caller instead of guessing.
package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/storage"
)

// Scope defines where to look for matches. Can be combined with bitwise OR.
type Scope int

const (
	ScopeLocation  Scope = 1 << iota // Entities in the caller's location
	ScopeInventory                   // Entities the caller carries
	ScopeGlobalId                    // Direct identity lookup, world-wide
	ScopeTag                         // Entities carrying the query as a tag
)

// ErrNothingFound is returned when no entity matches the query.
var ErrNothingFound = errors.New("nothing found")

// AmbiguousError reports multiple matches without an ordinal to pick one.
// Caller-facing: the candidate list is meant for a disambiguation prompt.
type AmbiguousError struct {
	Query      string
	Candidates []*game.Entity
}

func (e *AmbiguousError) Error() string {
	names := make([]string, 0, len(e.Candidates))
	for i, c := range e.Candidates {
		names = append(names, fmt.Sprintf("%d-%s", i+1, c.Name()))
	}
	return fmt.Sprintf("%q matches more than one: %s", e.Query, strings.Join(names, ", "))
}

// Search resolves a query for the caller within the given scope(s).
//
// Global-by-identity lookups bypass matching and disambiguation entirely,
// since identities are unique. Everything else builds a candidate pool in
// creation order, matches exact-first, and applies the ordinal prefix or
// fails ambiguous.
func Search(w *game.World, caller *game.Entity, query string, scope Scope) (*game.Entity, error) {
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", ErrNothingFound)
	}

	if scope&ScopeGlobalId != 0 {
		e, err := w.Get(storage.Identifier(query))
		if err == nil {
			return e, nil
		}
		if scope == ScopeGlobalId {
			return nil, fmt.Errorf("identity %q: %w", query, ErrNothingFound)
		}
	}

	ordinal, name := splitOrdinal(query)

	var matches []*game.Entity

	if scope&ScopeInventory != 0 && caller != nil {
		matches = append(matches, matchPool(caller.Contents(), name)...)
	}
	if scope&ScopeLocation != 0 && caller != nil {
		if loc := caller.Location(); loc != nil {
			for _, e := range matchPool(loc.Contents(), name) {
				if e.Id() != caller.Id() {
					matches = append(matches, e)
				}
			}
		}
	}
	if scope&ScopeTag != 0 {
		tagged, err := w.FindTagged(name)
		if err != nil {
			return nil, err
		}
		matches = append(matches, tagged...)
	}

	matches = dedupe(matches)

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%q: %w", query, ErrNothingFound)

	case ordinal > 0:
		if ordinal > len(matches) {
			return nil, fmt.Errorf("%q: only %d match(es): %w", query, len(matches), ErrNothingFound)
		}
		return matches[ordinal-1], nil

	case len(matches) == 1:
		return matches[0], nil

	default:
		return nil, &AmbiguousError{Query: query, Candidates: matches}
	}
}

// splitOrdinal parses a leading "N-" ordinal prefix. Returns (0, query)
// when no valid prefix is present.
func splitOrdinal(query string) (int, string) {
	prefix, rest, ok := strings.Cut(query, "-")
	if !ok || rest == "" {
		return 0, query
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n < 1 {
		return 0, query
	}
	return n, rest
}

// matchPool matches a name against a pool, exact matches first. Substring
// matches are only considered when the pool holds no exact match, so an
// exact hit always outranks an alias/substring hit.
func matchPool(pool []*game.Entity, name string) []*game.Entity {
	lower := strings.ToLower(name)

	var exact, partial []*game.Entity
	for _, e := range pool {
		switch {
		case matchKeys(e, lower, keyEqual):
			exact = append(exact, e)
		case matchKeys(e, lower, strings.Contains):
			partial = append(partial, e)
		}
	}

	if len(exact) > 0 {
		return exact
	}
	return partial
}

func keyEqual(key, query string) bool {
	return key == query
}

func matchKeys(e *game.Entity, query string, match func(key, query string) bool) bool {
	if match(strings.ToLower(e.Name()), query) {
		return true
	}
	for _, alias := range e.Aliases() {
		if match(strings.ToLower(alias), query) {
			return true
		}
	}
	return false
}

func dedupe(entities []*game.Entity) []*game.Entity {
	seen := map[storage.Identifier]bool{}
	out := entities[:0]
	for _, e := range entities {
		if !seen[e.Id()] {
			seen[e.Id()] = true
			out = append(out, e)
		}
	}
	return out
}
