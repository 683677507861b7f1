package display

import (
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestWrap(t *testing.T) {
	short := "a short line"
	testutil.AssertEqual(t, "short line untouched", Wrap(short), short)

	long := strings.Repeat("word ", 40)
	for i, line := range strings.Split(Wrap(long), "\n") {
		if len(line) > DefaultWidth {
			t.Errorf("line %d is %d columns", i, len(line))
		}
	}
}

func TestCapitalize(t *testing.T) {
	tests := map[string]struct {
		in  string
		exp string
	}{
		"lowercase":          {in: "lantern", exp: "Lantern"},
		"already title-case": {in: "Alice", exp: "Alice"},
		"single rune":        {in: "x", exp: "X"},
		"empty":              {in: "", exp: ""},
		"rest untouched":     {in: "a quiet HALL", exp: "A quiet HALL"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "result", Capitalize(tt.in), tt.exp)
		})
	}
}
