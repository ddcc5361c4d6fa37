// Package search parses free-text search input and locates matches inside
// captured bodies for display.
package search

import (
	"strings"
	"unicode"
)

// ContextRadius is the number of characters shown on each side of a match.
const ContextRadius = 20

// Match is one occurrence of a term with surrounding text.
type Match struct {
	Term    string `json:"term"`
	Context string `json:"context"`
}

// Terms splits s on whitespace. A blank search yields no terms.
func Terms(s string) []string {
	return strings.Fields(s)
}

// Active reports whether s contains at least one term.
func Active(s string) bool {
	return len(Terms(s)) > 0
}

// Highlight finds every case-insensitive occurrence of each term of s in text.
// Matches are grouped by term in input order, then left to right; a scan
// resumes after the end of the previous occurrence so matches never overlap.
func Highlight(text, s string) []Match {
	terms := Terms(s)
	if len(terms) == 0 {
		return nil
	}

	runes := []rune(text)
	folded := lowerRunes(runes)

	matches := []Match{}
	for _, term := range terms {
		needle := lowerRunes([]rune(term))
		lowered := string(needle)
		start := 0
		for {
			pos := indexRunes(folded, needle, start)
			if pos < 0 {
				break
			}
			from := max(0, pos-ContextRadius)
			to := min(len(runes), pos+len(needle)+ContextRadius)
			matches = append(matches, Match{
				Term:    lowered,
				Context: "..." + string(runes[from:to]) + "...",
			})
			start = pos + len(needle)
		}
	}
	return matches
}

// lowerRunes folds rune by rune so indexes line up with the original text.
func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func indexRunes(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		if runesEqual(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
