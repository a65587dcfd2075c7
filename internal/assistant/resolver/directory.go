package resolver

import (
	"sort"
	"strings"

	"ledger-assistant/internal/models"
)

type Outcome string

const (
	OutcomeResolved  Outcome = "resolved"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomeNotFound  Outcome = "not_found"
)

// Match strengths, strongest first.
const (
	scoreExact     = 1.0
	scorePrefix    = 0.8
	scoreSubstring = 0.5
)

// Match is the result of looking a name up in a directory snapshot.
type Match struct {
	Outcome    Outcome
	Query      string
	Candidates []models.EntityCandidate
}

// Resolved returns the single accepted candidate.
func (m Match) Resolved() (models.EntityCandidate, bool) {
	if m.Outcome != OutcomeResolved || len(m.Candidates) != 1 {
		return models.EntityCandidate{}, false
	}
	return m.Candidates[0], true
}

func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ResolveEntity matches query against entries. A case-insensitive exact match
// wins outright; otherwise every entry whose name contains the query, or is
// contained by it, is a candidate, ranked exact > prefix > substring with ties
// kept in directory order.
func ResolveEntity(query string, entries []models.DirectoryEntry) Match {
	q := fold(query)
	m := Match{Outcome: OutcomeNotFound, Query: strings.TrimSpace(query), Candidates: []models.EntityCandidate{}}
	if q == "" {
		return m
	}

	var exact []models.EntityCandidate
	for _, e := range entries {
		if fold(e.Name) == q {
			exact = append(exact, candidate(e, scoreExact))
		}
	}
	if len(exact) > 0 {
		m.Candidates = exact
		m.Outcome = outcomeFor(len(exact))
		return m
	}

	for _, e := range entries {
		name := fold(e.Name)
		if name == "" {
			continue
		}
		switch {
		case strings.HasPrefix(name, q), strings.HasPrefix(q, name):
			m.Candidates = append(m.Candidates, candidate(e, scorePrefix))
		case strings.Contains(name, q), strings.Contains(q, name):
			m.Candidates = append(m.Candidates, candidate(e, scoreSubstring))
		}
	}
	sort.SliceStable(m.Candidates, func(i, j int) bool {
		return m.Candidates[i].Score > m.Candidates[j].Score
	})
	m.Outcome = outcomeFor(len(m.Candidates))
	return m
}

func outcomeFor(n int) Outcome {
	switch {
	case n == 0:
		return OutcomeNotFound
	case n == 1:
		return OutcomeResolved
	}
	return OutcomeAmbiguous
}

func candidate(e models.DirectoryEntry, score float64) models.EntityCandidate {
	return models.EntityCandidate{ID: e.ID, DisplayName: e.Name, Score: score}
}
