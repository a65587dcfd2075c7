// Package candidates derives the search strings used to probe the event
// catalog for a fixture phrase.
package candidates

import (
	"regexp"
	"strings"
)

// DefaultLimit is the number of catalog lookups issued per resolution.
const DefaultLimit = 4

var separator = regexp.MustCompile(`(?i)\s(?:vs\.?|v\.?|@)\s`)

// Segments is a phrase split on its versus separator.
type Segments struct {
	Home         []string
	Away         []string
	Tokens       []string
	HasSeparator bool
}

// Split breaks phrase into home and away segments. Without a separator both
// segments are empty and Tokens holds every word of the phrase.
func Split(phrase string) Segments {
	padded := " " + strings.TrimSpace(phrase) + " "
	seg := Segments{}

	if loc := separator.FindStringIndex(padded); loc != nil {
		seg.HasSeparator = true
		seg.Home = strings.Fields(padded[:loc[0]])
		seg.Away = strings.Fields(stripSeparators(padded[loc[1]-1:]))
	}

	seg.Tokens = strings.Fields(stripSeparators(padded))
	return seg
}

// stripSeparators removes every separator word, including ones that touch
// each other ("a vs v b").
func stripSeparators(padded string) string {
	for {
		next := separator.ReplaceAllString(padded, "  ")
		if next == padded {
			return next
		}
		padded = next
	}
}

// Build returns at most limit distinct non-empty queries: the phrase without
// separators, the home segment, the away segment, then single tokens.
func Build(phrase string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	seg := Split(phrase)

	ordered := []string{strings.Join(seg.Tokens, " ")}
	if seg.HasSeparator {
		ordered = append(ordered, strings.Join(seg.Home, " "), strings.Join(seg.Away, " "))
		ordered = append(ordered, seg.Home...)
		ordered = append(ordered, seg.Away...)
	} else {
		ordered = append(ordered, seg.Tokens...)
	}

	out := make([]string, 0, limit)
	seen := make(map[string]bool, len(ordered))
	for _, q := range ordered {
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out
}
