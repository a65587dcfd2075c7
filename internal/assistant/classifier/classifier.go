// Package classifier maps an utterance onto one intent with a typed draft
// payload. Matchers run in priority order and the first one whose predicate
// holds decides the intent; lower matchers are never consulted.
package classifier

import (
	"strings"

	"ledger-assistant/internal/models"
)

// DefaultThreshold is the minimum confidence for a non-unknown intent.
const DefaultThreshold = 0.5

type matcher struct {
	name    string
	match   func(u *utterance) bool
	extract func(u *utterance) models.Intent
}

var matchers = []matcher{
	{name: "greeting", match: matchGreeting, extract: extractGreeting},
	{name: "create_counterparty", match: matchCreateCounterparty, extract: extractCreateCounterparty},
	{name: "buy", match: matchBuy, extract: extractBuy},
	{name: "sell", match: matchSell, extract: extractSell},
	{name: "payment", match: matchPayment, extract: extractPayment},
	{name: "bank_charge", match: matchBankCharge, extract: extractBankCharge},
	{name: "salary", match: matchSalary, extract: extractSalary},
	{name: "fee", match: matchFee, extract: extractFee},
	{name: "profit_loss", match: matchProfit, extract: extractProfit},
	{name: "balance", match: matchBalance, extract: extractBalance},
	{name: "generic_query", match: matchGeneric, extract: extractGeneric},
}

type Classifier struct {
	threshold float64
}

type Option func(*Classifier)

func WithThreshold(t float64) Option {
	return func(c *Classifier) {
		if t > 0 && t <= 1 {
			c.threshold = t
		}
	}
}

func New(opts ...Option) *Classifier {
	c := &Classifier{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MatcherNames lists the matchers in priority order.
func MatcherNames() []string {
	names := make([]string, 0, len(matchers))
	for _, m := range matchers {
		names = append(names, m.name)
	}
	return names
}

// Classify returns the intent of text. Empty input, input no matcher accepts
// and drafts scoring below the threshold are unknown with confidence 0.
func (c *Classifier) Classify(text string) models.Intent {
	if strings.TrimSpace(text) == "" {
		return models.UnknownIntent("empty input")
	}

	u := newUtterance(text)
	for _, m := range matchers {
		if !m.match(u) {
			continue
		}
		intent := m.extract(u)
		if intent.Kind == models.IntentGreeting {
			return intent
		}
		intent.MissingFields = intent.Missing()
		intent.Confidence = confidence(&intent)
		if intent.Confidence < c.threshold {
			return models.UnknownIntent("low confidence " + m.name + " match")
		}
		return intent
	}
	return models.UnknownIntent("no pattern matched")
}

// confidence grows with the share of required fields that were extracted.
func confidence(intent *models.Intent) float64 {
	total := requiredFieldCount(intent)
	if total == 0 {
		return 1
	}
	found := total - len(intent.MissingFields)
	if found < 0 {
		found = 0
	}
	return 0.55 + 0.45*float64(found)/float64(total)
}

func requiredFieldCount(intent *models.Intent) int {
	switch {
	case intent.Transaction != nil:
		d := intent.Transaction
		if d.Kind() != models.IntentManualTransaction {
			return 5
		}
		n := 1
		if d.CounterpartyRequired() {
			n++
		}
		if d.BankRequired() {
			n++
		}
		return n
	case intent.Counterparty != nil:
		return 2
	case intent.Query != nil:
		if intent.Query.QueryType == models.QueryGeneric {
			return 0
		}
		return 1
	}
	return 0
}
