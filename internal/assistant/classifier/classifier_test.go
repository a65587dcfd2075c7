package classifier

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-assistant/internal/models"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertAmount(t *testing.T, want string, got *decimal.Decimal) {
	t.Helper()
	require.NotNil(t, got, "amount missing")
	assert.True(t, got.Equal(dec(want)), "amount: want %s got %s", want, got)
}

// ==========================
// Purchases and orders
// ==========================

func TestClassify_Purchase(t *testing.T) {
	c := New()
	intent := c.Classify("Bought from Benny 2 tickets Arsenal Spurs Short Upper 100 ea")

	require.Equal(t, models.IntentPurchase, intent.Kind)
	d := intent.Transaction
	require.NotNil(t, d)
	assert.Equal(t, models.TransactionPurchase, d.TransactionType)
	assert.Equal(t, "Benny", d.CounterpartyName)
	assert.Equal(t, 2, d.Quantity)
	assert.Equal(t, "arsenal tottenham", d.EventQuery)
	assert.Equal(t, "Short Upper", d.Area)
	assertAmount(t, "100", d.Amount)
	assert.True(t, d.PerUnit)
	assert.Empty(t, intent.MissingFields)
	assert.Equal(t, 1.0, intent.Confidence)
}

func TestClassify_PurchaseWithoutPrice(t *testing.T) {
	intent := New().Classify("Bought from Benny 2 tickets Arsenal Spurs Short Upper")

	require.Equal(t, models.IntentPurchase, intent.Kind)
	assert.Nil(t, intent.Transaction.Amount)
	assert.Equal(t, []models.Field{models.FieldAmount}, intent.MissingFields)
	assert.InDelta(t, 0.55+0.45*4.0/5.0, intent.Confidence, 1e-9)
}

type tradeView struct {
	Counterparty string
	Quantity     int
	Amount       string
}

func viewOf(d *models.TransactionDraft) tradeView {
	v := tradeView{Counterparty: d.CounterpartyName, Quantity: d.Quantity}
	if d.Amount != nil {
		v.Amount = d.Amount.String()
	}
	return v
}

func TestClassify_WordOrderInvariance(t *testing.T) {
	c := New()
	a := c.Classify("Bought 2 Arsenal Spurs tickets from Benny at 100 each")
	b := c.Classify("Bought from Benny 2 tickets Arsenal Spurs 100 ea")

	require.Equal(t, models.IntentPurchase, a.Kind)
	require.Equal(t, models.IntentPurchase, b.Kind)
	if diff := cmp.Diff(viewOf(a.Transaction), viewOf(b.Transaction)); diff != "" {
		t.Errorf("word order changed extraction (-a +b):\n%s", diff)
	}
	assert.Equal(t, tradeView{Counterparty: "Benny", Quantity: 2, Amount: "100"}, viewOf(a.Transaction))
	assert.Equal(t, a.Transaction.EventQuery, b.Transaction.EventQuery)
}

func TestClassify_CaseInsensitive(t *testing.T) {
	c := New()
	upper := c.Classify("BOUGHT FROM BENNY 100 GBP")
	lower := c.Classify("bought from benny 100 gbp")

	assert.Equal(t, lower.Kind, upper.Kind)
	assert.Equal(t, models.IntentPurchase, upper.Kind)
	assert.Equal(t, lower.MissingFields, upper.MissingFields)
	assert.Equal(t, lower.Confidence, upper.Confidence)
	assert.True(t, upper.Transaction.Amount.Equal(*lower.Transaction.Amount))
	assert.Equal(t, "BENNY", upper.Transaction.CounterpartyName)
	assert.Equal(t, "benny", lower.Transaction.CounterpartyName)
}

func TestClassify_SeatDetails(t *testing.T) {
	intent := New().Classify("bought 4 tickets from Sam chelsea v everton block 112 row F seats 5-8 £85 each")

	require.Equal(t, models.IntentPurchase, intent.Kind)
	d := intent.Transaction
	assert.Equal(t, "Sam", d.CounterpartyName)
	assert.Equal(t, 4, d.Quantity)
	assert.Equal(t, "112", d.Block)
	assert.Equal(t, "F", d.Row)
	assert.Equal(t, "5-8", d.Seats)
	assert.Equal(t, "chelsea v everton", d.EventQuery)
	assertAmount(t, "85", d.Amount)
	assert.True(t, d.PerUnit)
	assert.Equal(t, []models.Field{models.FieldArea}, intent.MissingFields)
}

func TestClassify_Order(t *testing.T) {
	intent := New().Classify("Sold 2 tickets to Dave Arsenal v Chelsea Long Lower 150 each")

	require.Equal(t, models.IntentOrder, intent.Kind)
	d := intent.Transaction
	assert.Equal(t, models.TransactionOrder, d.TransactionType)
	assert.Equal(t, models.DirectionIn, d.Direction)
	assert.Equal(t, "Dave", d.CounterpartyName)
	assert.Equal(t, 2, d.Quantity)
	assert.Equal(t, "Long Lower", d.Area)
	assert.Equal(t, "arsenal v chelsea", d.EventQuery)
	assertAmount(t, "150", d.Amount)
}

func TestClassify_QuantityForms(t *testing.T) {
	intent := New().Classify("bought from benny hammers v gunners x3 vip 200")
	require.Equal(t, models.IntentPurchase, intent.Kind)
	assert.Equal(t, 3, intent.Transaction.Quantity)
	assert.Equal(t, "VIP", intent.Transaction.Area)
	assert.Equal(t, "west ham v arsenal", intent.Transaction.EventQuery)
	assertAmount(t, "200", intent.Transaction.Amount)
	assert.False(t, intent.Transaction.PerUnit)
}

// ==========================
// Manual transactions
// ==========================

func TestClassify_PaymentMade(t *testing.T) {
	intent := New().Classify("PAID BENNY 3250")

	require.Equal(t, models.IntentManualTransaction, intent.Kind)
	d := intent.Transaction
	assert.Equal(t, models.TransactionPaymentMade, d.TransactionType)
	assert.Equal(t, "BENNY", d.CounterpartyName)
	assertAmount(t, "3250", d.Amount)
	assert.Equal(t, models.DirectionOut, d.Direction)
	assert.Equal(t, models.CategoryPayment, d.Category)
	assert.Equal(t, models.ModeStandard, d.Mode)
	assert.Contains(t, intent.MissingFields, models.Field("payment method/bank"))
}

func TestClassify_Payments(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		txType    models.TransactionType
		party     string
		amount    string
		bank      string
		mode      models.PaymentMode
		missing   []models.Field
		direction models.Direction
	}{
		{
			name: "received from with bank", input: "Received £3,250.50 from Benny via HSBC",
			txType: models.TransactionPaymentReceived, party: "Benny", amount: "3250.5", bank: "HSBC",
			mode: models.ModeStandard, missing: []models.Field{}, direction: models.DirectionIn,
		},
		{
			name: "reverse phrasing", input: "Benny paid us 500",
			txType: models.TransactionPaymentReceived, party: "Benny", amount: "500",
			mode: models.ModeCash, missing: []models.Field{}, direction: models.DirectionIn,
		},
		{
			name: "paid in cash", input: "paid Ali 200 cash",
			txType: models.TransactionPaymentMade, party: "Ali", amount: "200",
			mode: models.ModeCash, missing: []models.Field{}, direction: models.DirectionOut,
		},
		{
			name: "paid to with account", input: "paid 900 to Sam from Barclays account",
			txType: models.TransactionPaymentMade, party: "Sam", amount: "900", bank: "Barclays",
			mode: models.ModeStandard, missing: []models.Field{}, direction: models.DirectionOut,
		},
		{
			name: "no amount", input: "paid benny by monzo",
			txType: models.TransactionPaymentMade, party: "benny", bank: "monzo",
			mode: models.ModeStandard, missing: []models.Field{models.FieldAmount}, direction: models.DirectionOut,
		},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := c.Classify(tt.input)
			require.Equal(t, models.IntentManualTransaction, intent.Kind)
			d := intent.Transaction
			assert.Equal(t, tt.txType, d.TransactionType)
			assert.Equal(t, tt.party, d.CounterpartyName)
			assert.Equal(t, tt.bank, d.BankName)
			assert.Equal(t, tt.mode, d.Mode)
			assert.Equal(t, tt.direction, d.Direction)
			assert.Equal(t, tt.missing, intent.MissingFields)
			if tt.amount != "" {
				assertAmount(t, tt.amount, d.Amount)
			}
		})
	}
}

func TestClassify_ManualCategories(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		txType   models.TransactionType
		category models.Category
		party    string
		bank     string
		amount   string
	}{
		{name: "bank charge", input: "bank charged 15", txType: models.TransactionBankCharge, category: models.CategoryBankCharge, amount: "15"},
		{name: "named bank charge", input: "HSBC bank charges 12.50", txType: models.TransactionBankCharge, category: models.CategoryBankCharge, bank: "HSBC", amount: "12.50"},
		{name: "bank charge wins over payment", input: "paid bank charges 8 from Barclays", txType: models.TransactionBankCharge, category: models.CategoryBankCharge, bank: "Barclays", amount: "8"},
		{name: "staff salary", input: "paid staff salary 2000", txType: models.TransactionSalary, category: models.CategorySalary, amount: "2000"},
		{name: "named salary", input: "paid John salary 1800", txType: models.TransactionSalary, category: models.CategorySalary, party: "John", amount: "1800"},
		{name: "bot fee", input: "paid 20 for the ai bot subscription", txType: models.TransactionFee, category: models.CategoryAIBot, amount: "20"},
		{name: "api usage fee", input: "api usage 35.99", txType: models.TransactionFee, category: models.CategoryFee, amount: "35.99"},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := c.Classify(tt.input)
			require.Equal(t, models.IntentManualTransaction, intent.Kind)
			d := intent.Transaction
			assert.Equal(t, tt.txType, d.TransactionType)
			assert.Equal(t, tt.category, d.Category)
			assert.Equal(t, tt.party, d.CounterpartyName)
			assert.Equal(t, tt.bank, d.BankName)
			assertAmount(t, tt.amount, d.Amount)
			assert.Equal(t, models.DirectionOut, d.Direction)
		})
	}
}

func TestClassify_FeeWithoutAmount(t *testing.T) {
	intent := New().Classify("chatbot subscription fee")
	require.Equal(t, models.IntentManualTransaction, intent.Kind)
	assert.Equal(t, models.CategoryAIBot, intent.Transaction.Category)
	assert.Equal(t, []models.Field{models.FieldAmount}, intent.MissingFields)
	assert.InDelta(t, 0.55, intent.Confidence, 1e-9)
}

// ==========================
// Counterparty creation
// ==========================

func TestClassify_CreateCounterparty(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		cpName  string
		role    string
		phone   string
		email   string
		missing []models.Field
	}{
		{
			name: "explicit", input: "Create new counterparty Ali Saad trader +96176389293",
			cpName: "Ali Saad", role: "trader", phone: "+96176389293", missing: []models.Field{},
		},
		{
			name: "declarative", input: "Sam Jones is a broker, phone 07700 900 123",
			cpName: "Sam Jones", role: "broker", phone: "07700900123", missing: []models.Field{},
		},
		{
			name: "add contact without phone", input: "add contact called Maya",
			cpName: "Maya", role: "trader", missing: []models.Field{models.FieldPhone},
		},
		{
			name: "new vendor with email", input: "new vendor Tom Baker tom@tickets.io 020-7946-0958",
			cpName: "Tom Baker", role: "vendor", phone: "02079460958", email: "tom@tickets.io", missing: []models.Field{},
		},
		{
			name: "short phone is ignored", input: "create counterparty Lee 12345",
			cpName: "Lee", role: "trader", missing: []models.Field{models.FieldPhone},
		},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := c.Classify(tt.input)
			require.Equal(t, models.IntentCreateCounterparty, intent.Kind)
			d := intent.Counterparty
			require.NotNil(t, d)
			assert.Equal(t, tt.cpName, d.Name)
			assert.Equal(t, tt.role, d.Role)
			assert.Equal(t, tt.phone, d.Phone)
			assert.Equal(t, tt.email, d.Email)
			assert.Equal(t, tt.missing, intent.MissingFields)
		})
	}
}

// ==========================
// Queries
// ==========================

func TestClassify_Queries(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  models.IntentKind
		query models.QueryDraft
	}{
		{
			name: "profit on fixture", input: "what's the profit on Arsenal vs Spurs?",
			kind: models.IntentQueryProfitLoss, query: models.QueryDraft{QueryType: models.QueryProfit, EventName: "arsenal vs tottenham"},
		},
		{
			name: "p&l", input: "P&L chelsea everton",
			kind: models.IntentQueryProfitLoss, query: models.QueryDraft{QueryType: models.QueryProfit, EventName: "chelsea everton"},
		},
		{
			name: "owes", input: "how much does Benny owe us",
			kind: models.IntentQueryVendorBalance, query: models.QueryDraft{QueryType: models.QueryBalance, CounterpartyName: "Benny"},
		},
		{
			name: "we owe", input: "what do we owe Sam",
			kind: models.IntentQueryVendorBalance, query: models.QueryDraft{QueryType: models.QueryBalance, CounterpartyName: "Sam"},
		},
		{
			name: "position with", input: "position with Ali Saad",
			kind: models.IntentQueryVendorBalance, query: models.QueryDraft{QueryType: models.QueryBalance, CounterpartyName: "Ali Saad"},
		},
		{
			name: "summary", input: "show me a summary of transactions",
			kind: models.IntentQuery, query: models.QueryDraft{QueryType: models.QueryGeneric},
		},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := c.Classify(tt.input)
			require.Equal(t, tt.kind, intent.Kind)
			require.NotNil(t, intent.Query)
			assert.Equal(t, tt.query, *intent.Query)
			assert.Empty(t, intent.MissingFields)
			assert.Equal(t, 1.0, intent.Confidence)
		})
	}
}

func TestClassify_ProfitWithoutEvent(t *testing.T) {
	intent := New().Classify("what's my profit")
	require.Equal(t, models.IntentQueryProfitLoss, intent.Kind)
	assert.Equal(t, []models.Field{models.FieldEvent}, intent.MissingFields)
}

// ==========================
// Greeting, unknown, priority
// ==========================

func TestClassify_Greeting(t *testing.T) {
	for _, in := range []string{"hi", "Hello there", "good morning team"} {
		intent := New().Classify(in)
		assert.Equal(t, models.IntentGreeting, intent.Kind, in)
		assert.NotEmpty(t, intent.Reply)
		assert.Nil(t, intent.Transaction)
	}
}

func TestClassify_Unknown(t *testing.T) {
	for _, in := range []string{"", "   \t  ", "the weather is nice", "hello can you book a taxi"} {
		intent := New().Classify(in)
		assert.Equal(t, models.IntentUnknown, intent.Kind, in)
		assert.Equal(t, 0.0, intent.Confidence, in)
		assert.Empty(t, intent.MissingFields)
	}
}

func TestClassify_PriorityTieBreak(t *testing.T) {
	c := New()

	// Buy and payment both apply; buy is higher priority.
	intent := c.Classify("bought from benny 2 tickets arsenal spurs vip and paid 200")
	assert.Equal(t, models.IntentPurchase, intent.Kind)

	// Salary words keep payment from firing.
	intent = c.Classify("paid salary to Sam 1500")
	require.Equal(t, models.IntentManualTransaction, intent.Kind)
	assert.Equal(t, models.CategorySalary, intent.Transaction.Category)
	assert.Equal(t, "Sam", intent.Transaction.CounterpartyName)
}

func TestClassify_Threshold(t *testing.T) {
	strict := New(WithThreshold(0.9))
	intent := strict.Classify("bought from benny")
	assert.Equal(t, models.IntentUnknown, intent.Kind)
	assert.Equal(t, 0.0, intent.Confidence)

	intent = New().Classify("bought from benny")
	assert.Equal(t, models.IntentPurchase, intent.Kind)
	assert.InDelta(t, 0.55+0.45*1.0/5.0, intent.Confidence, 1e-9)
}

func TestMatcherNames(t *testing.T) {
	names := MatcherNames()
	require.Len(t, names, 11)
	assert.Equal(t, "greeting", names[0])
	assert.Equal(t, "generic_query", names[len(names)-1])
}

// ==========================
// Field parsers
// ==========================

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		perUnit bool
		ok      bool
	}{
		{"150", "150", false, true},
		{"£3,250.50", "3250.5", false, true},
		{"£25", "25", false, true},
		{"85 each", "85", true, true},
		{"it was 40ea", "40", true, true},
		{"no idea", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Value.Equal(dec(tt.want)))
				assert.Equal(t, tt.perUnit, got.PerUnit)
			}
		})
	}
}

func TestParseQuantity(t *testing.T) {
	n, ok := ParseQuantity("2")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	n, ok = ParseQuantity("4 tickets")
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	n, ok = ParseQuantity("x3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = ParseQuantity("a couple")
	assert.False(t, ok)

	_, ok = ParseQuantity("0")
	assert.False(t, ok)
}

func TestParsePhone(t *testing.T) {
	p, ok := ParsePhone("call +961 76 389 293")
	assert.True(t, ok)
	assert.Equal(t, "+96176389293", p)

	_, ok = ParsePhone("block 112")
	assert.False(t, ok)
}

func TestParseArea(t *testing.T) {
	assert.Equal(t, "Short Upper", ParseArea("short upper"))
	assert.Equal(t, "Block A Corner", ParseArea("  Block A   Corner "))
}

func TestTitleJoin_MultiByteFirstRune(t *testing.T) {
	u := newUtterance("ünter rang vip")
	require.Len(t, u.toks, 3)
	assert.Equal(t, "Ünter Rang VIP", titleJoin(u, []int{0, 1, 2}))
}
