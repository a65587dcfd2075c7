package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"ledger-assistant/internal/assistant/normalize"
)

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var (
	ticketWords   = set("ticket", "tickets", "tix", "tkts", "tkt")
	perUnitWords  = set("each", "ea", "pp", "per", "apiece")
	priceLeadIns  = set("at", "for", "@", "price", "cost", "costing", "total")
	currencyWords = set("gbp", "usd", "eur", "pounds", "pound", "quid", "euros", "dollars")
	roleWords     = set("trader", "vendor", "supplier", "customer", "broker", "agent", "client", "seller", "buyer", "reseller")
	bankLeadIns   = set("via", "through", "using", "by", "with", "into", "from")
	cashWords     = set("cash")

	structuralWords = set(
		"ticket", "tickets", "tix", "tkts", "tkt", "each", "ea", "pp", "per", "apiece",
		"at", "for", "x", "area", "section", "block", "blk", "row", "seat", "seats",
		"in", "on", "with", "and", "from", "to", "@", "vs", "v", "vs.", "v.", "via", "by",
		"through", "using", "into", "of", "the", "a", "an", "is", "are", "was",
		"paid", "pay", "payment", "received", "receive", "bought", "buy", "purchased", "purchase",
		"sold", "sell", "cash", "bank", "account", "transfer", "card", "salary", "salaries", "wages",
		"fee", "fees", "charge", "charged", "charges", "today", "yesterday", "tonight", "tomorrow",
		"us", "me", "we", "i", "them", "our", "my", "phone", "tel", "mobile", "number", "email",
		"role", "as", "named", "called", "owes", "owe", "owed", "balance", "position",
		"profit", "loss", "p&l", "pnl", "new", "create", "add", "counterparty", "contact",
		"staff", "does", "do", "did", "how", "much", "what", "what's", "whats", "game", "match",
	)
)

// areaPhrases is matched longest first against the utterance.
var areaPhrases = [][]string{
	{"short", "upper"}, {"short", "lower"}, {"long", "upper"}, {"long", "lower"},
	{"north", "upper"}, {"north", "lower"}, {"south", "upper"}, {"south", "lower"},
	{"east", "upper"}, {"east", "lower"}, {"west", "upper"}, {"west", "lower"},
	{"north", "stand"}, {"south", "stand"}, {"east", "stand"}, {"west", "stand"},
	{"north", "bank"}, {"clock", "end"}, {"shed", "end"}, {"away", "end"}, {"home", "end"},
	{"family", "stand"}, {"club", "level"}, {"upper", "tier"}, {"lower", "tier"}, {"middle", "tier"},
	{"upper"}, {"lower"}, {"vip"}, {"box"}, {"hospitality"}, {"pitchside"}, {"executive"},
}

var areaWords = func() map[string]bool {
	m := make(map[string]bool)
	for _, p := range areaPhrases {
		for _, w := range p {
			m[w] = true
		}
	}
	return m
}()

var (
	quantityX     = regexp.MustCompile(`^(?:x(\d+)|(\d+)x)$`)
	phonePattern  = regexp.MustCompile(`\+?\d[\d\s-]{6,}\d`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	integerDigits = regexp.MustCompile(`^\d+$`)
)

// utterance is one classification pass over a normalized input. used marks
// tokens already claimed by an extractor.
type utterance struct {
	raw       string
	toks      []string
	words     []normalize.Word
	used      []bool
	mixedCase bool
}

func newUtterance(raw string) *utterance {
	res := normalize.Normalize(raw)
	return &utterance{
		raw:       raw,
		toks:      res.Tokens,
		words:     res.Words,
		used:      make([]bool, len(res.Tokens)),
		mixedCase: hasUpper(raw) && hasLower(raw),
	}
}

func hasUpper(s string) bool { return strings.IndexFunc(s, unicode.IsUpper) >= 0 }
func hasLower(s string) bool { return strings.IndexFunc(s, unicode.IsLower) >= 0 }

func (u *utterance) normalized() string {
	return strings.Join(u.toks, " ")
}

func (u *utterance) has(words map[string]bool) bool {
	return u.indexOf(words, 0) >= 0
}

func (u *utterance) indexOf(words map[string]bool, from int) int {
	for i := from; i < len(u.toks); i++ {
		if words[u.toks[i]] {
			return i
		}
	}
	return -1
}

// phraseIndex finds a contiguous run of tokens.
func (u *utterance) phraseIndex(phrase ...string) int {
	for i := 0; i+len(phrase) <= len(u.toks); i++ {
		match := true
		for j, p := range phrase {
			if u.toks[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func (u *utterance) use(idx ...int) {
	for _, i := range idx {
		if i >= 0 && i < len(u.used) {
			u.used[i] = true
		}
	}
}

func (u *utterance) useWords(words map[string]bool) {
	for i, t := range u.toks {
		if words[t] {
			u.used[i] = true
		}
	}
}

func isNumeric(tok string) bool {
	if _, ok := normalize.ParseNumber(tok); ok {
		return true
	}
	return quantityX.MatchString(tok)
}

func hasDigit(tok string) bool {
	return strings.IndexFunc(tok, unicode.IsDigit) >= 0
}

func isNameStop(tok string) bool {
	return structuralWords[tok] || areaWords[tok] || roleWords[tok] || currencyWords[tok] ||
		normalize.IsTeamWord(tok) || hasDigit(tok) || normalize.HasCurrencyMarker(tok)
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// nameAfter collects up to max name tokens following index i. In mixed-case
// input a run that starts capitalized stops at the first lowercase word.
func (u *utterance) nameAfter(i, max int) (string, []int) {
	var idx []int
	capitalRun := false
	for j := i + 1; j < len(u.toks) && len(idx) < max; j++ {
		if u.used[j] || isNameStop(u.toks[j]) {
			break
		}
		if len(idx) == 0 {
			capitalRun = u.mixedCase && startsUpper(u.words[j].Raw)
		} else if capitalRun && !startsUpper(u.words[j].Raw) {
			break
		}
		idx = append(idx, j)
	}
	return u.join(idx), idx
}

// nameBefore collects up to max name tokens preceding index i.
func (u *utterance) nameBefore(i, max int) (string, []int) {
	var idx []int
	for j := i - 1; j >= 0 && len(idx) < max; j-- {
		if u.used[j] || isNameStop(u.toks[j]) {
			break
		}
		if u.mixedCase && len(idx) > 0 && startsUpper(u.words[idx[0]].Raw) && !startsUpper(u.words[j].Raw) {
			break
		}
		idx = append([]int{j}, idx...)
	}
	return u.join(idx), idx
}

func (u *utterance) join(idx []int) string {
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, u.words[i].Raw)
	}
	return strings.Join(parts, " ")
}

// seatDetails claims "block N", "row X" and "seat(s) N".
func (u *utterance) seatDetails() (block, row, seats string) {
	grab := func(keys map[string]bool) string {
		i := u.indexOf(keys, 0)
		if i < 0 || i+1 >= len(u.toks) || u.used[i+1] {
			return ""
		}
		u.use(i, i+1)
		return strings.ToUpper(u.words[i+1].Raw)
	}
	block = grab(set("block", "blk"))
	row = grab(set("row"))
	seats = grab(set("seat", "seats"))
	return block, row, seats
}

// quantity finds the integer nearest before a ticket word, or an "Nx" form.
func (u *utterance) quantity() (int, bool) {
	if t := u.indexOf(ticketWords, 0); t >= 0 {
		for j := t - 1; j >= 0; j-- {
			if u.used[j] || !integerDigits.MatchString(u.toks[j]) {
				continue
			}
			if j+1 < len(u.toks) && perUnitWords[u.toks[j+1]] {
				continue
			}
			if j > 0 && priceLeadIns[u.toks[j-1]] {
				continue
			}
			n, err := strconv.Atoi(u.toks[j])
			if err != nil || n < 1 {
				continue
			}
			u.use(j, t)
			return n, true
		}
	}
	for i, tok := range u.toks {
		if u.used[i] {
			continue
		}
		if m := quantityX.FindStringSubmatch(tok); m != nil {
			digits := m[1] + m[2]
			if n, err := strconv.Atoi(digits); err == nil && n >= 1 {
				u.use(i)
				return n, true
			}
		}
		if tok == "x" && i+1 < len(u.toks) && integerDigits.MatchString(u.toks[i+1]) && !u.used[i+1] {
			if n, err := strconv.Atoi(u.toks[i+1]); err == nil && n >= 1 {
				u.use(i, i+1)
				return n, true
			}
		}
	}
	return 0, false
}

// AmountValue is an extracted price. PerUnit marks "each" style prices.
type AmountValue struct {
	Value   decimal.Decimal
	PerUnit bool
}

func hasPerUnitSuffix(tok string) bool {
	for _, s := range []string{"each", "ea", "pp"} {
		if strings.HasSuffix(tok, s) && len(tok) > len(s) {
			return true
		}
	}
	return false
}

// amount prefers explicitly marked prices, then the first free numeric
// literal. Values are not rounded here.
func (u *utterance) amount() (AmountValue, bool) {
	for i, tok := range u.toks {
		if u.used[i] || quantityX.MatchString(tok) {
			continue
		}
		v, ok := normalize.ParseNumber(tok)
		if !ok {
			continue
		}
		next := ""
		if i+1 < len(u.toks) {
			next = u.toks[i+1]
		}
		prev := ""
		if i > 0 {
			prev = u.toks[i-1]
		}

		perUnit := perUnitWords[next] || hasPerUnitSuffix(tok)
		explicit := perUnit || currencyWords[next] || normalize.HasCurrencyMarker(tok) || priceLeadIns[prev]
		if !explicit {
			continue
		}
		u.claimAmount(i, prev, next)
		return AmountValue{Value: v, PerUnit: perUnit}, true
	}

	for i, tok := range u.toks {
		if u.used[i] || quantityX.MatchString(tok) {
			continue
		}
		if v, ok := normalize.ParseNumber(tok); ok {
			u.use(i)
			return AmountValue{Value: v, PerUnit: hasPerUnitSuffix(tok)}, true
		}
	}
	return AmountValue{}, false
}

func (u *utterance) claimAmount(i int, prev, next string) {
	u.use(i)
	if priceLeadIns[prev] {
		u.use(i - 1)
	}
	if perUnitWords[next] || currencyWords[next] {
		u.use(i + 1)
		if next == "per" && i+2 < len(u.toks) && ticketWords[u.toks[i+2]] {
			u.use(i + 2)
		}
	}
}

// area matches the area lexicon, then free text after "area"/"section".
func (u *utterance) area() (string, bool) {
	for _, phrase := range areaPhrases {
		at := u.phraseIndex(phrase...)
		if at < 0 {
			continue
		}
		free := true
		for k := range phrase {
			if u.used[at+k] {
				free = false
			}
		}
		if !free {
			continue
		}
		idx := make([]int, len(phrase))
		for k := range phrase {
			idx[k] = at + k
		}
		u.use(idx...)
		return titleJoin(u, idx), true
	}

	if i := u.indexOf(set("area", "section", "stand"), 0); i >= 0 {
		var idx []int
		for j := i + 1; j < len(u.toks) && len(idx) < 2; j++ {
			if u.used[j] || structuralWords[u.toks[j]] || isNumeric(u.toks[j]) {
				break
			}
			idx = append(idx, j)
		}
		if len(idx) > 0 {
			u.use(i)
			u.use(idx...)
			return titleJoin(u, idx), true
		}
	}
	return "", false
}

func titleJoin(u *utterance, idx []int) string {
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		w := u.toks[i]
		if w == "vip" {
			parts = append(parts, "VIP")
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		parts = append(parts, string(unicode.ToUpper(r))+w[size:])
	}
	return strings.Join(parts, " ")
}

var eventFiller = set(
	"ticket", "tickets", "tix", "tkts", "tkt", "x", "each", "ea", "pp", "per", "apiece",
	"for", "the", "of", "a", "an", "at", "in", "on", "game", "match", "fixture", "event",
	"and", "to", "from", "with", "i", "we", "us", "me", "today", "yesterday",
)

var versusWords = set("vs", "v", "vs.", "v.", "@")

// remainder joins unclaimed tokens as an event phrase, keeping versus
// separators only between words.
func (u *utterance) remainder(extraFiller map[string]bool) string {
	var parts []string
	for i, tok := range u.toks {
		if u.used[i] || eventFiller[tok] || extraFiller[tok] || currencyWords[tok] || isNumeric(tok) {
			continue
		}
		if versusWords[tok] && (len(parts) == 0 || versusWords[parts[len(parts)-1]]) {
			continue
		}
		parts = append(parts, tok)
	}
	for len(parts) > 0 && versusWords[parts[len(parts)-1]] {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, " ")
}

// ParseAmount reads a price from a bare reply such as "150" or "£3,250.50 each".
func ParseAmount(text string) (AmountValue, bool) {
	return newUtterance(text).amount()
}

// ParseQuantity reads a ticket count from a bare reply such as "2" or "x3".
func ParseQuantity(text string) (int, bool) {
	u := newUtterance(text)
	if n, ok := u.quantity(); ok {
		return n, true
	}
	for _, tok := range u.toks {
		if integerDigits.MatchString(tok) {
			if n, err := strconv.Atoi(tok); err == nil && n >= 1 {
				return n, true
			}
		}
	}
	return 0, false
}

// ParsePhone finds a phone number of at least seven digits and strips its
// spacing.
func ParsePhone(text string) (string, bool) {
	for _, m := range phonePattern.FindAllString(text, -1) {
		cleaned := strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(m)
		digits := strings.TrimPrefix(cleaned, "+")
		if len(digits) >= 7 {
			return cleaned, true
		}
	}
	return "", false
}

// ParseArea reads a seating area from a bare reply, falling back to the
// trimmed text itself.
func ParseArea(text string) string {
	u := newUtterance(text)
	if a, ok := u.area(); ok {
		return a
	}
	return strings.Join(strings.Fields(text), " ")
}

func parseEmail(text string) string {
	return emailPattern.FindString(text)
}
