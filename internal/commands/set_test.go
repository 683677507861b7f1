package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

func joinKeys(m *Merged) string {
	return strings.Join(m.Keys(), ",")
}

func noopHandler(ctx context.Context, ex *Execution) error {
	return nil
}

func testCmd(key string, priority int, aliases ...string) *Command {
	return &Command{
		Key:      key,
		Aliases:  aliases,
		Priority: priority,
		Handler:  noopHandler,
	}
}

func TestSet_Validate(t *testing.T) {
	tests := map[string]struct {
		set    Set
		expErr bool
	}{
		"valid set": {
			set: Set{
				Name:     "default",
				Commands: []*Command{testCmd("look", 0)},
			},
		},
		"missing name": {
			set:    Set{},
			expErr: true,
		},
		"duplicate key": {
			set: Set{
				Name:     "default",
				Commands: []*Command{testCmd("look", 0), testCmd("look", 5)},
			},
			expErr: true,
		},
		"invalid command": {
			set: Set{
				Name:     "default",
				Commands: []*Command{{Key: "look"}},
			},
			expErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.set.Validate()

			if tt.expErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMergeSets_Union(t *testing.T) {
	tests := map[string]struct {
		contribs    []Contribution
		expKeys     string
		expSource   map[string]string // key -> source expected to survive
		expWarnings int
	}{
		"disjoint sets": {
			contribs: []Contribution{
				{Source: "entity", Set: &Set{Name: "a", Commands: []*Command{testCmd("look", 0)}}},
				{Source: "item", Set: &Set{Name: "b", Commands: []*Command{testCmd("light", 0)}}},
			},
			expKeys:   "light,look",
			expSource: map[string]string{"look": "entity", "light": "item"},
		},
		"higher priority wins regardless of order": {
			contribs: []Contribution{
				{Source: "entity", Set: &Set{Name: "a", Commands: []*Command{testCmd("look", 5)}}},
				{Source: "item", Set: &Set{Name: "b", Commands: []*Command{testCmd("look", 0)}}},
			},
			expKeys:   "look",
			expSource: map[string]string{"look": "entity"},
		},
		"lower priority earlier is displaced": {
			contribs: []Contribution{
				{Source: "entity", Set: &Set{Name: "a", Commands: []*Command{testCmd("look", 0)}}},
				{Source: "item", Set: &Set{Name: "b", Commands: []*Command{testCmd("look", 5)}}},
			},
			expKeys:   "look",
			expSource: map[string]string{"look": "item"},
		},
		"equal priority later precedence wins with one warning": {
			contribs: []Contribution{
				{Source: "entity", Set: &Set{Name: "a", Commands: []*Command{testCmd("look", 0)}}},
				{Source: "item", Set: &Set{Name: "b", Commands: []*Command{testCmd("look", 0)}}},
			},
			expKeys:     "look",
			expSource:   map[string]string{"look": "item"},
			expWarnings: 1,
		},
		"nil set is skipped": {
			contribs: []Contribution{
				{Source: "entity", Set: &Set{Name: "a", Commands: []*Command{testCmd("look", 0)}}},
				{Source: "location", Set: nil},
			},
			expKeys: "look",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			merged := MergeSets(tt.contribs)

			testutil.AssertEqual(t, "keys", joinKeys(merged), tt.expKeys)
			testutil.AssertEqual(t, "warnings", len(merged.Warnings()), tt.expWarnings)

			for key, source := range tt.expSource {
				e, ok := merged.entries[key]
				if !ok {
					t.Fatalf("expected key %q to survive", key)
				}
				testutil.AssertEqual(t, "source of "+key, e.source, source)
			}
		})
	}
}

func TestMergeSets_Deterministic(t *testing.T) {
	contribs := []Contribution{
		{Source: "entity", Set: &Set{Name: "a", Commands: []*Command{testCmd("look", 0), testCmd("get", 0)}}},
		{Source: "item", Set: &Set{Name: "b", Commands: []*Command{testCmd("look", 0)}}},
	}

	first := MergeSets(contribs)
	second := MergeSets(contribs)

	testutil.AssertEqual(t, "keys", joinKeys(second), joinKeys(first))
	testutil.AssertEqual(t, "warning count", len(second.Warnings()), len(first.Warnings()))
	for i := range first.Warnings() {
		testutil.AssertEqual(t, "warning", second.Warnings()[i], first.Warnings()[i])
	}
}

func TestMergeSets_Replace(t *testing.T) {
	tests := map[string]struct {
		prefix  string
		expKeys string
	}{
		"replace everything": {
			prefix:  "",
			expKeys: "sit",
		},
		"replace under prefix": {
			prefix:  "get",
			expKeys: "look,sit",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			merged := MergeSets([]Contribution{
				{Source: "entity", Set: &Set{
					Name:     "default",
					Commands: []*Command{testCmd("look", 0), testCmd("get", 0)},
				}},
				{Source: "location", Set: &Set{
					Name:      "furniture",
					Merge:     MergeReplace,
					KeyPrefix: tt.prefix,
					Commands:  []*Command{testCmd("sit", 0)},
				}},
			})

			testutil.AssertEqual(t, "keys", joinKeys(merged), tt.expKeys)
		})
	}
}

func TestMergeSets_Remove(t *testing.T) {
	merged := MergeSets([]Contribution{
		{Source: "entity", Set: &Set{
			Name:     "default",
			Commands: []*Command{testCmd("look", 0), testCmd("shout", 0)},
		}},
		{Source: "location", Set: &Set{
			Name:  "quiet-room",
			Merge: MergeRemove,
			// Removal ignores priority entirely.
			Commands: []*Command{testCmd("shout", -10)},
		}},
	})

	testutil.AssertEqual(t, "keys", joinKeys(merged), "look")
	testutil.AssertEqual(t, "warnings", len(merged.Warnings()), 0)
}

func TestMerged_Match(t *testing.T) {
	merged := MergeSets([]Contribution{
		{Source: "entity", Set: &Set{
			Name: "default",
			Commands: []*Command{
				testCmd("get", 0, "take"),
				testCmd("get all", 0),
				testCmd("look", 0, "l"),
			},
		}},
	})

	tests := map[string]struct {
		input   string
		expKey  string
		expArgs string
		expOk   bool
	}{
		"bare key": {
			input:  "look",
			expKey: "look",
			expOk:  true,
		},
		"key with args": {
			input:   "get lantern",
			expKey:  "get",
			expArgs: "lantern",
			expOk:   true,
		},
		"longest key wins": {
			input:  "get all",
			expKey: "get all",
			expOk:  true,
		},
		"longest key with args": {
			input:   "get all from chest",
			expKey:  "get all",
			expArgs: "from chest",
			expOk:   true,
		},
		"alias": {
			input:   "take lantern",
			expKey:  "get",
			expArgs: "lantern",
			expOk:   true,
		},
		"single letter alias": {
			input:  "l",
			expKey: "look",
			expOk:  true,
		},
		"case insensitive": {
			input:   "LOOK east",
			expKey:  "look",
			expArgs: "east",
			expOk:   true,
		},
		"no match": {
			input: "dance",
			expOk: false,
		},
		"prefix without word boundary": {
			input: "looking",
			expOk: false,
		},
		"empty input": {
			input: "",
			expOk: false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cmd, args, ok := merged.Match(tt.input)

			testutil.AssertEqual(t, "ok", ok, tt.expOk)
			if !tt.expOk {
				return
			}
			testutil.AssertEqual(t, "key", cmd.Key, tt.expKey)
			testutil.AssertEqual(t, "args", args, tt.expArgs)
		})
	}
}
