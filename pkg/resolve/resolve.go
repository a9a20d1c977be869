// Package resolve substitutes {{name}} placeholders in command strings and
// display text using the variable store.
package resolve

import (
	"regexp"
	"strings"

	"github.com/instep-sh/instep/pkg/vars"
)

// placeholderRe matches {{name}} with optional inner whitespace.
var placeholderRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Command resolves placeholders for substitution into a command line.
// Missing variables resolve to the empty string; booleans keep their
// literal true/false form; arrays join with commas. Resolution is
// deterministic and has no side effects.
func Command(text string, store *vars.Store) string {
	return substitute(text, store, vars.CommandString, "")
}

// Display resolves placeholders for human-readable text. Booleans render
// as Yes/No and missing or empty values as "<not set>".
func Display(text string, store *vars.Store) string {
	return substitute(text, store, vars.DisplayString, "<not set>")
}

func substitute(text string, store *vars.Store, render func(any) string, missing string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		v, ok := store.Get(name)
		if !ok {
			return missing
		}
		return render(v)
	})
}

// Placeholders returns the distinct variable names referenced by text,
// in order of first appearance.
func Placeholders(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
