package models

type IntentKind string

const (
	IntentGreeting           IntentKind = "greeting"
	IntentPurchase           IntentKind = "purchase"
	IntentOrder              IntentKind = "order"
	IntentManualTransaction  IntentKind = "manual_transaction"
	IntentCreateCounterparty IntentKind = "create_counterparty"
	IntentQuery              IntentKind = "query"
	IntentQueryProfitLoss    IntentKind = "query_profit_loss"
	IntentQueryVendorBalance IntentKind = "query_vendor_balance"
	IntentUnknown            IntentKind = "unknown"
)

// IsQuery reports whether the kind reads data instead of creating a record.
func (k IntentKind) IsQuery() bool {
	switch k {
	case IntentQuery, IntentQueryProfitLoss, IntentQueryVendorBalance:
		return true
	}
	return false
}

// Field identifies a draft value the operator may be asked for.
type Field string

const (
	FieldCounterparty Field = "counterparty"
	FieldQuantity     Field = "quantity"
	FieldEvent        Field = "event"
	FieldArea         Field = "area"
	FieldAmount       Field = "amount"
	FieldBank         Field = "payment method/bank"
	FieldName         Field = "name"
	FieldPhone        Field = "phone"
)

// Intent is the classified reading of one utterance. Exactly one payload is
// set for drafting kinds; greeting carries only Reply.
type Intent struct {
	Kind          IntentKind         `json:"kind"`
	Confidence    float64            `json:"confidence"`
	Explanation   string             `json:"explanation"`
	Transaction   *TransactionDraft  `json:"transaction,omitempty"`
	Counterparty  *CounterpartyDraft `json:"counterparty,omitempty"`
	Query         *QueryDraft        `json:"query,omitempty"`
	MissingFields []Field            `json:"missingFields"`
	Reply         string             `json:"reply,omitempty"`
}

func UnknownIntent(explanation string) Intent {
	return Intent{
		Kind:          IntentUnknown,
		Confidence:    0,
		Explanation:   explanation,
		MissingFields: []Field{},
	}
}

// Missing recomputes the missing fields from whichever payload is set.
func (i *Intent) Missing() []Field {
	switch {
	case i.Transaction != nil:
		return i.Transaction.MissingFields()
	case i.Counterparty != nil:
		return i.Counterparty.MissingFields()
	case i.Query != nil:
		return i.Query.MissingFields()
	}
	return []Field{}
}
