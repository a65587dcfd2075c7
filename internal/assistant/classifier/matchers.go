package classifier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ledger-assistant/internal/models"
)

var (
	greetingWords = set("hi", "hello", "hey", "hiya", "yo", "morning", "afternoon", "evening", "howdy")
	greetingFill  = set("good", "there", "all", "team", "thanks", "thank", "you", "cheers", "mate")

	createVerbs       = set("create", "add", "new", "register", "setup")
	counterpartyNouns = set("counterparty", "counterparties", "contact", "vendor", "supplier", "customer", "trader", "client")

	buyVerbs  = set("bought", "buy", "buying", "purchased", "purchase")
	sellVerbs = set("sold", "sell", "selling")

	paymentVerbs  = set("paid", "pay", "payment", "received", "receive", "receipt")
	receivedVerbs = set("received", "receive", "receipt")
	salaryWords   = set("salary", "salaries", "wages", "wage", "payroll")
	salaryCues    = set("paid", "pay", "staff", "payroll")
	feeWords      = set("fee", "fees", "subscription", "subscriptions", "api")
	botWords      = set("bot", "chatbot", "ai")
	chargeWords   = set("charge", "charged", "charges")

	profitWords  = set("profit", "p&l", "pnl", "loss", "margin")
	owesWords    = set("owes", "owe", "owed", "owing")
	summaryWords = set("summary", "transactions", "overview", "report", "recent", "activity", "history")

	queryFiller = set(
		"what", "what's", "whats", "is", "are", "the", "on", "for", "of", "my", "our", "show", "me",
		"how", "much", "did", "we", "make", "made", "profit", "p&l", "pnl", "loss", "margin",
		"and", "tell", "give", "get", "check", "please", "total", "projected",
	)
)

func matchGreeting(u *utterance) bool {
	if len(u.toks) == 0 || len(u.toks) > 5 {
		return false
	}
	core := false
	for _, t := range u.toks {
		switch {
		case greetingWords[t]:
			core = true
		case greetingFill[t]:
		default:
			return false
		}
	}
	return core
}

func extractGreeting(*utterance) models.Intent {
	return models.Intent{
		Kind:          models.IntentGreeting,
		Confidence:    1,
		Explanation:   "greeting",
		Reply:         "Hi! Tell me about a purchase, sale, payment or ask for a balance.",
		MissingFields: []models.Field{},
	}
}

// ==========================
// Create counterparty
// ==========================

func explicitCreateIndex(u *utterance) int {
	for i, t := range u.toks {
		if !createVerbs[t] {
			continue
		}
		for j := i + 1; j <= i+2 && j < len(u.toks); j++ {
			if counterpartyNouns[u.toks[j]] {
				return j
			}
		}
	}
	return -1
}

// declarativeRoleIndex finds "<name> is a <role>" and returns the index of "is".
func declarativeRoleIndex(u *utterance) int {
	for i := 1; i+2 < len(u.toks); i++ {
		if u.toks[i] == "is" && (u.toks[i+1] == "a" || u.toks[i+1] == "an") && roleWords[u.toks[i+2]] {
			return i
		}
	}
	return -1
}

func matchCreateCounterparty(u *utterance) bool {
	return explicitCreateIndex(u) >= 0 || declarativeRoleIndex(u) >= 0
}

func extractCreateCounterparty(u *utterance) models.Intent {
	draft := &models.CounterpartyDraft{Role: models.DefaultCounterpartyRole}

	if i := explicitCreateIndex(u); i >= 0 {
		u.use(i)
		start := i
		if start+1 < len(u.toks) && (u.toks[start+1] == "named" || u.toks[start+1] == "called") {
			start++
		}
		draft.Name, _ = u.nameAfter(start, 4)
		if role := u.indexOf(roleWords, i+1); role >= 0 {
			draft.Role = u.toks[role]
		} else if counterpartyNouns[u.toks[i]] && roleWords[u.toks[i]] {
			draft.Role = u.toks[i]
		}
	} else if is := declarativeRoleIndex(u); is >= 0 {
		draft.Name, _ = u.nameBefore(is, 4)
		draft.Role = u.toks[is+2]
	}

	draft.Phone, _ = ParsePhone(u.raw)
	draft.Email = parseEmail(u.raw)

	return models.Intent{
		Kind:         models.IntentCreateCounterparty,
		Counterparty: draft,
		Explanation:  fmt.Sprintf("Create %s %q", draft.Role, draft.Name),
	}
}

// ==========================
// Buy / sell
// ==========================

func matchBuy(u *utterance) bool {
	return u.has(buyVerbs) && (u.has(set("from")) || u.has(ticketWords))
}

func matchSell(u *utterance) bool {
	return u.has(sellVerbs) && (u.has(set("to")) || u.has(ticketWords))
}

func extractBuy(u *utterance) models.Intent {
	return extractTrade(u, models.TransactionPurchase, buyVerbs, "from")
}

func extractSell(u *utterance) models.Intent {
	return extractTrade(u, models.TransactionOrder, sellVerbs, "to")
}

func extractTrade(u *utterance, txType models.TransactionType, verbs map[string]bool, marker string) models.Intent {
	draft := &models.TransactionDraft{TransactionType: txType, Direction: models.DirectionOut}
	if txType == models.TransactionOrder {
		draft.Direction = models.DirectionIn
	}
	u.useWords(verbs)

	if m := u.indexOf(set(marker), 0); m >= 0 {
		u.use(m)
		name, idx := u.nameAfter(m, 3)
		draft.CounterpartyName = name
		u.use(idx...)
	}

	draft.Block, draft.Row, draft.Seats = u.seatDetails()

	if n, ok := u.quantity(); ok {
		draft.Quantity = n
	}
	if a, ok := u.amount(); ok {
		draft.Amount = &a.Value
		draft.PerUnit = a.PerUnit
	}
	if area, ok := u.area(); ok {
		draft.Area = area
	}
	draft.EventQuery = u.remainder(nil)

	verb := "Purchase from"
	if txType == models.TransactionOrder {
		verb = "Sale to"
	}
	return models.Intent{
		Kind:        txType.Kind(),
		Transaction: draft,
		Explanation: fmt.Sprintf("%s %s: %s", verb, orUnknown(draft.CounterpartyName), describeTrade(draft)),
	}
}

func describeTrade(d *models.TransactionDraft) string {
	parts := []string{}
	if d.Quantity > 0 {
		parts = append(parts, fmt.Sprintf("%d tickets", d.Quantity))
	}
	if d.EventQuery != "" {
		parts = append(parts, fmt.Sprintf("event %q", d.EventQuery))
	}
	if d.Area != "" {
		parts = append(parts, "area "+d.Area)
	}
	if d.Amount != nil {
		price := d.Amount.String()
		if d.PerUnit {
			price += " each"
		}
		parts = append(parts, price)
	}
	if len(parts) == 0 {
		return "no details yet"
	}
	return strings.Join(parts, ", ")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown counterparty"
	}
	return s
}

// ==========================
// Manual transactions
// ==========================

func hasBankCharge(u *utterance) bool {
	if u.has(chargeWords) {
		return true
	}
	b := u.indexOf(set("bank"), 0)
	return b >= 0 && b+1 < len(u.toks) && (u.toks[b+1] == "fee" || u.toks[b+1] == "fees")
}

func hasFeeCue(u *utterance) bool {
	return u.has(feeWords) || u.phraseIndex("api", "usage") >= 0
}

func matchPayment(u *utterance) bool {
	if !u.has(paymentVerbs) {
		return false
	}
	return !u.has(salaryWords) && !hasFeeCue(u) && !hasBankCharge(u)
}

func extractPayment(u *utterance) models.Intent {
	trigger := u.indexOf(paymentVerbs, 0)
	received := receivedVerbs[u.toks[trigger]]

	draft := &models.TransactionDraft{
		TransactionType: models.TransactionPaymentMade,
		Direction:       models.DirectionOut,
		Category:        models.CategoryPayment,
	}

	// "<name> paid us" is money coming in.
	if u.toks[trigger] == "paid" && trigger+1 < len(u.toks) && (u.toks[trigger+1] == "us" || u.toks[trigger+1] == "me") {
		received = true
		u.use(trigger + 1)
		draft.CounterpartyName, _ = u.nameBefore(trigger, 3)
	}
	u.use(trigger)
	if received {
		draft.TransactionType = models.TransactionPaymentReceived
		draft.Direction = models.DirectionIn
	}

	bankName := u.bankName()

	if draft.CounterpartyName == "" {
		draft.CounterpartyName = u.counterpartyNear(trigger, received)
	}
	if a, ok := u.amount(); ok {
		draft.Amount = &a.Value
	}

	applyMode(u, draft, bankName)
	direction := "to"
	if received {
		direction = "from"
	}
	return models.Intent{
		Kind:        models.IntentManualTransaction,
		Transaction: draft,
		Explanation: fmt.Sprintf("Payment %s %s %s", direction, orUnknown(draft.CounterpartyName), amountText(draft.Amount)),
	}
}

// counterpartyNear finds the payee or payer around the trigger verb.
func (u *utterance) counterpartyNear(trigger int, received bool) string {
	markers := []string{"to"}
	if received {
		markers = []string{"from"}
	}
	for _, m := range markers {
		if i := u.indexOf(set(m), 0); i >= 0 && !u.used[i] {
			if name, idx := u.nameAfter(i, 3); name != "" {
				u.use(i)
				u.use(idx...)
				return name
			}
		}
	}
	if name, idx := u.nameAfter(trigger, 3); name != "" {
		u.use(idx...)
		return name
	}
	if name, idx := u.nameBefore(trigger, 3); name != "" {
		u.use(idx...)
		return name
	}
	return ""
}

// bankName reads "via HSBC" style payment methods and claims them.
func (u *utterance) bankName() string {
	for i, t := range u.toks {
		if u.used[i] || !bankLeadIns[t] {
			continue
		}
		if t == "from" && !(i+2 < len(u.toks) && u.toks[i+2] == "account") {
			continue
		}
		name, idx := u.nameAfter(i, 3)
		if name == "" {
			continue
		}
		u.use(i)
		u.use(idx...)
		if a := u.indexOf(set("account"), 0); a >= 0 {
			u.use(a)
		}
		return name
	}
	return ""
}

// applyMode sets the payment method. Standard mode requires a bank and is
// used when one is named or money is paid out; cash otherwise.
func applyMode(u *utterance, d *models.TransactionDraft, bankName string) {
	d.BankName = bankName
	switch {
	case u.has(cashWords):
		d.Mode = models.ModeCash
		d.BankName = ""
	case bankName != "" || d.TransactionType == models.TransactionPaymentMade:
		d.Mode = models.ModeStandard
	default:
		d.Mode = models.ModeCash
	}
}

func amountText(a *decimal.Decimal) string {
	if a == nil {
		return "(amount missing)"
	}
	return a.String()
}

func matchBankCharge(u *utterance) bool {
	return hasBankCharge(u) && (u.has(set("bank")) || u.has(set("charged")))
}

func extractBankCharge(u *utterance) models.Intent {
	draft := &models.TransactionDraft{
		TransactionType: models.TransactionBankCharge,
		Direction:       models.DirectionOut,
		Category:        models.CategoryBankCharge,
	}
	u.useWords(chargeWords)

	bankName := ""
	if i := u.indexOf(set("from", "by", "at"), 0); i >= 0 {
		if name, idx := u.nameAfter(i, 3); name != "" {
			bankName = name
			u.use(i)
			u.use(idx...)
		}
	}
	if bankName == "" {
		anchor := u.indexOf(set("bank"), 0)
		if anchor < 0 {
			anchor = u.indexOf(chargeWords, 0)
		}
		if anchor > 0 {
			name, idx := u.nameBefore(anchor, 2)
			bankName = name
			u.use(idx...)
		}
	}
	u.useWords(set("bank"))

	if a, ok := u.amount(); ok {
		draft.Amount = &a.Value
	}
	applyMode(u, draft, bankName)
	return models.Intent{
		Kind:        models.IntentManualTransaction,
		Transaction: draft,
		Explanation: fmt.Sprintf("Bank charge %s", amountText(draft.Amount)),
	}
}

func matchSalary(u *utterance) bool {
	return u.has(salaryWords) && u.has(salaryCues)
}

func extractSalary(u *utterance) models.Intent {
	draft := &models.TransactionDraft{
		TransactionType: models.TransactionSalary,
		Direction:       models.DirectionOut,
		Category:        models.CategorySalary,
	}
	bankName := u.bankName()

	if i := u.indexOf(set("to", "for"), 0); i >= 0 {
		if name, idx := u.nameAfter(i, 3); name != "" {
			draft.CounterpartyName = name
			u.use(i)
			u.use(idx...)
		}
	}
	if draft.CounterpartyName == "" {
		if p := u.indexOf(set("paid", "pay"), 0); p >= 0 {
			name, idx := u.nameAfter(p, 3)
			draft.CounterpartyName = name
			u.use(idx...)
		}
	}
	if a, ok := u.amount(); ok {
		draft.Amount = &a.Value
	}
	applyMode(u, draft, bankName)
	return models.Intent{
		Kind:        models.IntentManualTransaction,
		Transaction: draft,
		Explanation: fmt.Sprintf("Salary for %s %s", orStaff(draft.CounterpartyName), amountText(draft.Amount)),
	}
}

func orStaff(s string) string {
	if s == "" {
		return "staff"
	}
	return s
}

func matchFee(u *utterance) bool {
	return hasFeeCue(u)
}

func extractFee(u *utterance) models.Intent {
	draft := &models.TransactionDraft{
		TransactionType: models.TransactionFee,
		Direction:       models.DirectionOut,
		Category:        models.CategoryFee,
	}
	if u.has(botWords) {
		draft.Category = models.CategoryAIBot
	}
	bankName := u.bankName()
	if a, ok := u.amount(); ok {
		draft.Amount = &a.Value
	}
	applyMode(u, draft, bankName)
	return models.Intent{
		Kind:        models.IntentManualTransaction,
		Transaction: draft,
		Explanation: fmt.Sprintf("%s fee %s", draft.Category, amountText(draft.Amount)),
	}
}

// ==========================
// Queries
// ==========================

func matchProfit(u *utterance) bool {
	return u.has(profitWords)
}

func extractProfit(u *utterance) models.Intent {
	event := u.remainder(queryFiller)
	return models.Intent{
		Kind:        models.IntentQueryProfitLoss,
		Query:       &models.QueryDraft{QueryType: models.QueryProfit, EventName: event},
		Explanation: fmt.Sprintf("Profit and loss for %q", event),
	}
}

func balanceAnchor(u *utterance) (int, bool) {
	for _, p := range [][]string{{"position", "with"}, {"balance", "with"}, {"balance", "for"}, {"balance", "of"}, {"position", "on"}} {
		if i := u.phraseIndex(p...); i >= 0 {
			return i + 1, true
		}
	}
	if i := u.indexOf(owesWords, 0); i >= 0 {
		return i, false
	}
	return -1, false
}

func matchBalance(u *utterance) bool {
	i, _ := balanceAnchor(u)
	return i >= 0
}

func extractBalance(u *utterance) models.Intent {
	anchor, forward := balanceAnchor(u)
	name := ""
	if forward {
		name, _ = u.nameAfter(anchor, 3)
	} else {
		if name, _ = u.nameBefore(anchor, 3); name == "" {
			name, _ = u.nameAfter(anchor, 3)
		}
	}
	return models.Intent{
		Kind:        models.IntentQueryVendorBalance,
		Query:       &models.QueryDraft{QueryType: models.QueryBalance, CounterpartyName: name},
		Explanation: fmt.Sprintf("Balance with %s", orUnknown(name)),
	}
}

func matchGeneric(u *utterance) bool {
	return u.has(summaryWords)
}

func extractGeneric(*utterance) models.Intent {
	return models.Intent{
		Kind:        models.IntentQuery,
		Query:       &models.QueryDraft{QueryType: models.QueryGeneric},
		Explanation: "Transaction summary",
	}
}
