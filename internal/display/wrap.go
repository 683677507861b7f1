package display

import (
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultWidth = 80

// Wrap word-wraps text to DefaultWidth, preserving ANSI escape sequences.
func Wrap(text string) string {
	return wordwrap.String(text, DefaultWidth)
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// Capitalize returns s with its leading word title-cased, for entity
// names at the start of caller-facing sentences.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	first := titleCaser.String(s[:1])
	return first + s[1:]
}
