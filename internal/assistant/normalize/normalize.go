// Package normalize turns raw operator text into lowercase tokens with team
// nicknames expanded, keeping the original spelling of every word.
package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Word pairs a normalized token with the spelling the operator typed.
type Word struct {
	Raw  string
	Norm string
}

type Result struct {
	Normalized string
	Tokens     []string
	Words      []Word
}

const edgePunctuation = ",;:!?\"'()[]{}"

// nicknames maps slang to canonical club names. Ambiguous nicknames map to a
// single fixed club: blues is Chelsea, reds is Liverpool, whites is Fulham.
var nicknames = map[string]string{
	"spurs":    "tottenham",
	"gunners":  "arsenal",
	"blues":    "chelsea",
	"reds":     "liverpool",
	"whites":   "fulham",
	"toffees":  "everton",
	"hammers":  "west ham",
	"irons":    "west ham",
	"villans":  "aston villa",
	"magpies":  "newcastle",
	"toon":     "newcastle",
	"saints":   "southampton",
	"foxes":    "leicester",
	"wolves":   "wolverhampton",
	"baggies":  "west brom",
	"canaries": "norwich",
	"hornets":  "watford",
	"seagulls": "brighton",
	"cherries": "bournemouth",
	"bees":     "brentford",
	"citizens": "manchester city",
	"utd":      "manchester united",
	"eagles":   "crystal palace",
	"barca":    "barcelona",
	"juve":     "juventus",
}

// Canonical returns the expansion for a nickname token, or the token itself.
func Canonical(token string) string {
	if c, ok := nicknames[token]; ok {
		return c
	}
	return token
}

// IsNickname reports whether token has a canonical expansion.
func IsNickname(token string) bool {
	_, ok := nicknames[token]
	return ok
}

// Normalize lowercases, trims edge punctuation, collapses whitespace and
// expands nicknames. Normalize(Normalize(s).Normalized) is a fixed point.
func Normalize(raw string) Result {
	res := Result{Tokens: []string{}, Words: []Word{}}

	for _, field := range strings.Fields(raw) {
		trimmed := strings.Trim(field, edgePunctuation)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		canon := Canonical(lower)
		if canon == lower {
			res.Words = append(res.Words, Word{Raw: trimmed, Norm: lower})
			res.Tokens = append(res.Tokens, lower)
			continue
		}
		for _, part := range strings.Fields(canon) {
			res.Words = append(res.Words, Word{Raw: part, Norm: part})
			res.Tokens = append(res.Tokens, part)
		}
	}

	res.Normalized = strings.Join(res.Tokens, " ")
	return res
}

var (
	currencySymbols = strings.NewReplacer("£", "", "$", "", "€", "", ",", "")
	numericPattern  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	numericSuffixes = []string{"each", "gbp", "usd", "eur", "ea", "pp", "k"}
)

// ParseNumber reads one numeric literal such as "£3,250.50", "100ea" or
// "2.5k". Currency symbols and thousands separators are dropped; no rounding
// is applied.
func ParseNumber(token string) (decimal.Decimal, bool) {
	s := strings.ToLower(strings.TrimSpace(token))
	s = currencySymbols.Replace(s)
	s = strings.TrimSuffix(s, ".")

	multiplier := int64(1)
	for _, suffix := range numericSuffixes {
		if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
			if suffix == "k" {
				multiplier = 1000
			}
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}

	if !numericPattern.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Mul(decimal.NewFromInt(multiplier)), true
}

// HasCurrencyMarker reports whether a token carries a currency symbol or code.
func HasCurrencyMarker(token string) bool {
	s := strings.ToLower(token)
	if strings.ContainsAny(s, "£$€") {
		return true
	}
	for _, code := range []string{"gbp", "usd", "eur"} {
		if strings.HasSuffix(s, code) && len(s) > len(code) {
			return true
		}
	}
	return false
}

var extraTeamWords = []string{
	"manchester", "man", "united", "city", "villa", "palace", "forest", "nottingham",
	"sunderland", "leeds", "burnley", "ipswich", "luton", "sheffield", "celtic", "rangers",
	"real", "madrid", "atletico", "milan", "inter", "psg", "bayern", "dortmund", "ajax",
	"england", "wembley",
}

var teamWords = func() map[string]bool {
	set := make(map[string]bool)
	for _, canon := range nicknames {
		for _, w := range strings.Fields(canon) {
			set[w] = true
		}
	}
	for _, w := range extraTeamWords {
		set[w] = true
	}
	return set
}()

// IsTeamWord reports whether a normalized token is part of a known club name.
func IsTeamWord(token string) bool {
	return teamWords[token] || IsNickname(token)
}
