package search

import (
	"errors"
	"testing"

	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/storage"
	"github.com/pixil98/go-realm/internal/typeclass"
	"github.com/pixil98/go-testutil"
)

type fixture struct {
	world  *game.World
	caller *game.Entity
	room   *game.Entity
}

// newFixture builds a room holding the caller, two swords, a lantern with
// a "light" alias, and a rug the caller carries.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	types := typeclass.NewRegistry()
	if err := game.RegisterBuiltins(types); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	world, err := game.NewWorld(store, types)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	room := create(t, world, "room", "hall", nil)
	caller := create(t, world, "character", "alice", nil)
	caller.SetLocation(room)

	for _, name := range []string{"sword", "sword"} {
		create(t, world, "thing", name, nil).SetLocation(room)
	}
	create(t, world, "thing", "lantern", []string{"light"}).SetLocation(room)
	create(t, world, "thing", "rug", nil).SetLocation(caller)

	return &fixture{world: world, caller: caller, room: room}
}

func create(t *testing.T, world *game.World, typeName, name string, aliases []string) *game.Entity {
	t.Helper()

	attrs := map[string]any{"name": name}
	if aliases != nil {
		attrs["aliases"] = aliases
	}
	e, err := world.Create(typeName, attrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	tests := map[string]struct {
		query    string
		scope    Scope
		expName  string
		expErr   error
		expAmbig int
	}{
		"exact name in location": {
			query:   "lantern",
			scope:   ScopeLocation,
			expName: "lantern",
		},
		"case insensitive": {
			query:   "LANTERN",
			scope:   ScopeLocation,
			expName: "lantern",
		},
		"alias match": {
			query:   "light",
			scope:   ScopeLocation,
			expName: "lantern",
		},
		"substring match": {
			query:   "lant",
			scope:   ScopeLocation,
			expName: "lantern",
		},
		"inventory scope": {
			query:   "rug",
			scope:   ScopeInventory,
			expName: "rug",
		},
		"inventory not visible from location scope": {
			query:  "rug",
			scope:  ScopeLocation,
			expErr: ErrNothingFound,
		},
		"ambiguous without ordinal": {
			query:    "sword",
			scope:    ScopeLocation,
			expAmbig: 2,
		},
		"ordinal selects first": {
			query:   "1-sword",
			scope:   ScopeLocation,
			expName: "sword",
		},
		"ordinal selects second": {
			query:   "2-sword",
			scope:   ScopeLocation,
			expName: "sword",
		},
		"ordinal out of range": {
			query:  "3-sword",
			scope:  ScopeLocation,
			expErr: ErrNothingFound,
		},
		"nothing found": {
			query:  "dragon",
			scope:  ScopeLocation | ScopeInventory,
			expErr: ErrNothingFound,
		},
		"empty query": {
			query:  "",
			scope:  ScopeLocation,
			expErr: ErrNothingFound,
		},
		"caller excluded from own location pool": {
			query:  "alice",
			scope:  ScopeLocation,
			expErr: ErrNothingFound,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e, err := Search(f.world, f.caller, tt.query, tt.scope)

			if tt.expAmbig > 0 {
				var ambig *AmbiguousError
				if !errors.As(err, &ambig) {
					t.Fatalf("error = %v, expected AmbiguousError", err)
				}
				testutil.AssertEqual(t, "candidates", len(ambig.Candidates), tt.expAmbig)
				return
			}

			if tt.expErr != nil {
				if !errors.Is(err, tt.expErr) {
					t.Errorf("error = %v, expected %v", err, tt.expErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "name", e.Name(), tt.expName)
		})
	}
}

func TestSearch_ExactOutranksSubstring(t *testing.T) {
	f := newFixture(t)

	// "sword" is also a substring of "swordfish", but the exact matches
	// alone form the pool, so the ordinal picks among swords only.
	create(t, f.world, "thing", "swordfish", nil).SetLocation(f.room)

	_, err := Search(f.world, f.caller, "sword", ScopeLocation)
	var ambig *AmbiguousError
	if !errors.As(err, &ambig) {
		t.Fatalf("error = %v, expected AmbiguousError", err)
	}
	testutil.AssertEqual(t, "candidates", len(ambig.Candidates), 2)
	for _, c := range ambig.Candidates {
		testutil.AssertEqual(t, "candidate name", c.Name(), "sword")
	}
}

func TestSearch_GlobalId(t *testing.T) {
	f := newFixture(t)

	// Identity lookup bypasses name matching and works world-wide.
	e, err := Search(f.world, f.caller, f.room.Id().String(), ScopeGlobalId)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "name", e.Name(), "hall")

	_, err = Search(f.world, f.caller, "not-an-id", ScopeGlobalId)
	if !errors.Is(err, ErrNothingFound) {
		t.Errorf("error = %v, expected %v", err, ErrNothingFound)
	}

	// Combined with other scopes, a failed identity lookup falls through
	// to name matching.
	e, err = Search(f.world, f.caller, "lantern", ScopeGlobalId|ScopeLocation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "fallthrough name", e.Name(), "lantern")
}

func TestSearch_TagScope(t *testing.T) {
	f := newFixture(t)

	beacon := create(t, f.world, "thing", "beacon", nil)
	beacon.AddTag("landmark")

	e, err := Search(f.world, f.caller, "landmark", ScopeTag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "id", e.Id(), beacon.Id())
}

func TestSplitOrdinal(t *testing.T) {
	tests := map[string]struct {
		query   string
		expN    int
		expName string
	}{
		"no ordinal":          {query: "sword", expN: 0, expName: "sword"},
		"simple ordinal":      {query: "2-sword", expN: 2, expName: "sword"},
		"zero is not ordinal": {query: "0-sword", expN: 0, expName: "0-sword"},
		"negative rejected":   {query: "-2-sword", expN: 0, expName: "-2-sword"},
		"word prefix":         {query: "two-sword", expN: 0, expName: "two-sword"},
		"hyphenated name":     {query: "jack-o-lantern", expN: 0, expName: "jack-o-lantern"},
		"trailing hyphen":     {query: "sword-", expN: 0, expName: "sword-"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			n, rest := splitOrdinal(tt.query)

			testutil.AssertEqual(t, "ordinal", n, tt.expN)
			testutil.AssertEqual(t, "name", rest, tt.expName)
		})
	}
}
