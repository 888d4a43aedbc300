package similarity

import "strings"

// Tokenize lowercases text and splits it on runs of whitespace.
// It never returns empty tokens; blank input yields an empty slice.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
