package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionPurchase        TransactionType = "purchase"
	TransactionOrder           TransactionType = "order"
	TransactionPaymentMade     TransactionType = "payment_made"
	TransactionPaymentReceived TransactionType = "payment_received"
	TransactionBankCharge      TransactionType = "bank_charge"
	TransactionSalary          TransactionType = "salary"
	TransactionFee             TransactionType = "fee"
)

// Kind maps a transaction type onto the intent that creates it.
func (t TransactionType) Kind() IntentKind {
	switch t {
	case TransactionPurchase:
		return IntentPurchase
	case TransactionOrder:
		return IntentOrder
	}
	return IntentManualTransaction
}

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

type Category string

const (
	CategoryPayment    Category = "payment"
	CategoryBankCharge Category = "bank_charge"
	CategorySalary     Category = "salary"
	CategoryAIBot      Category = "ai_bot"
	CategoryFee        Category = "fee"
)

type PaymentMode string

const (
	ModeStandard PaymentMode = "standard"
	ModeCash     PaymentMode = "cash"
)

// TransactionDraft is the payload shared by purchases, orders and manual
// transactions. Nil pointers mark values that are not known yet.
type TransactionDraft struct {
	TransactionType  TransactionType  `json:"transactionType"`
	CounterpartyName string           `json:"counterpartyName,omitempty"`
	CounterpartyID   *string          `json:"counterpartyId"`
	Quantity         int              `json:"quantity,omitempty"`
	Area             string           `json:"area,omitempty"`
	Block            string           `json:"block,omitempty"`
	Row              string           `json:"row,omitempty"`
	Seats            string           `json:"seats,omitempty"`
	EventQuery       string           `json:"eventQuery,omitempty"`
	EventID          *string          `json:"eventId"`
	EventName        string           `json:"eventName,omitempty"`
	EventDate        *time.Time       `json:"eventDate,omitempty"`
	Amount           *decimal.Decimal `json:"amount"`
	PerUnit          bool             `json:"perUnit,omitempty"`
	Direction        Direction        `json:"direction,omitempty"`
	Category         Category         `json:"category,omitempty"`
	Mode             PaymentMode      `json:"mode,omitempty"`
	BankName         string           `json:"bankName,omitempty"`
	BankID           *string          `json:"bankId"`
	Notes            string           `json:"notes,omitempty"`
}

func (d *TransactionDraft) Kind() IntentKind {
	return d.TransactionType.Kind()
}

// CounterpartyRequired reports whether the draft cannot be submitted without
// a counterparty.
func (d *TransactionDraft) CounterpartyRequired() bool {
	switch d.Kind() {
	case IntentPurchase, IntentOrder:
		return true
	}
	return d.Category == CategoryPayment
}

func (d *TransactionDraft) BankRequired() bool {
	return d.Kind() == IntentManualTransaction && d.Mode == ModeStandard
}

// MissingFields lists absent values in the order they are asked for.
func (d *TransactionDraft) MissingFields() []Field {
	missing := []Field{}
	hasCounterparty := strings.TrimSpace(d.CounterpartyName) != "" || d.CounterpartyID != nil

	switch d.Kind() {
	case IntentPurchase, IntentOrder:
		if !hasCounterparty {
			missing = append(missing, FieldCounterparty)
		}
		if d.Quantity < 1 {
			missing = append(missing, FieldQuantity)
		}
		if strings.TrimSpace(d.EventQuery) == "" && d.EventID == nil {
			missing = append(missing, FieldEvent)
		}
		if strings.TrimSpace(d.Area) == "" {
			missing = append(missing, FieldArea)
		}
		if d.Amount == nil {
			missing = append(missing, FieldAmount)
		}
	default:
		if d.CounterpartyRequired() && !hasCounterparty {
			missing = append(missing, FieldCounterparty)
		}
		if d.Amount == nil {
			missing = append(missing, FieldAmount)
		}
		if d.BankRequired() && strings.TrimSpace(d.BankName) == "" && d.BankID == nil {
			missing = append(missing, FieldBank)
		}
	}
	return missing
}

// UnresolvedReferences lists named references that still lack an id.
func (d *TransactionDraft) UnresolvedReferences() []Field {
	refs := []Field{}
	if strings.TrimSpace(d.CounterpartyName) != "" && d.CounterpartyID == nil {
		refs = append(refs, FieldCounterparty)
	}
	if d.Kind() != IntentManualTransaction && strings.TrimSpace(d.EventQuery) != "" && d.EventID == nil {
		refs = append(refs, FieldEvent)
	}
	if strings.TrimSpace(d.BankName) != "" && d.BankID == nil {
		refs = append(refs, FieldBank)
	}
	return refs
}

func (d *TransactionDraft) Submittable() bool {
	return len(d.MissingFields()) == 0 && len(d.UnresolvedReferences()) == 0
}

// Total is the record value: amount times quantity for per-unit prices.
func (d *TransactionDraft) Total() decimal.Decimal {
	if d.Amount == nil {
		return decimal.Zero
	}
	if d.PerUnit && d.Quantity > 0 {
		return d.Amount.Mul(decimal.NewFromInt(int64(d.Quantity))).Round(2)
	}
	return d.Amount.Round(2)
}

// UnitPrice is the per-ticket price for purchase and order drafts.
func (d *TransactionDraft) UnitPrice() decimal.Decimal {
	if d.Amount == nil {
		return decimal.Zero
	}
	if d.PerUnit || d.Quantity < 1 {
		return d.Amount.Round(2)
	}
	return d.Amount.Div(decimal.NewFromInt(int64(d.Quantity))).Round(2)
}

func (d *TransactionDraft) Clone() *TransactionDraft {
	if d == nil {
		return nil
	}
	c := *d
	c.CounterpartyID = cloneString(d.CounterpartyID)
	c.EventID = cloneString(d.EventID)
	c.BankID = cloneString(d.BankID)
	if d.EventDate != nil {
		t := *d.EventDate
		c.EventDate = &t
	}
	if d.Amount != nil {
		a := *d.Amount
		c.Amount = &a
	}
	return &c
}

const DefaultCounterpartyRole = "trader"

type CounterpartyDraft struct {
	ID    *string `json:"id,omitempty"`
	Name  string  `json:"name,omitempty"`
	Phone string  `json:"phone,omitempty"`
	Role  string  `json:"role"`
	Email string  `json:"email,omitempty"`
}

func (d *CounterpartyDraft) MissingFields() []Field {
	missing := []Field{}
	if strings.TrimSpace(d.Name) == "" {
		missing = append(missing, FieldName)
	}
	if strings.TrimSpace(d.Phone) == "" {
		missing = append(missing, FieldPhone)
	}
	return missing
}

func (d *CounterpartyDraft) Clone() *CounterpartyDraft {
	if d == nil {
		return nil
	}
	c := *d
	c.ID = cloneString(d.ID)
	return &c
}

type QueryType string

const (
	QueryProfit  QueryType = "profit"
	QueryBalance QueryType = "balance"
	QueryGeneric QueryType = "generic"
)

type QueryDraft struct {
	QueryType        QueryType `json:"queryType"`
	CounterpartyName string    `json:"counterpartyName,omitempty"`
	CounterpartyID   *string   `json:"counterpartyId,omitempty"`
	EventName        string    `json:"eventName,omitempty"`
}

func (d *QueryDraft) Kind() IntentKind {
	switch d.QueryType {
	case QueryProfit:
		return IntentQueryProfitLoss
	case QueryBalance:
		return IntentQueryVendorBalance
	}
	return IntentQuery
}

func (d *QueryDraft) MissingFields() []Field {
	missing := []Field{}
	switch d.QueryType {
	case QueryProfit:
		if strings.TrimSpace(d.EventName) == "" {
			missing = append(missing, FieldEvent)
		}
	case QueryBalance:
		if strings.TrimSpace(d.CounterpartyName) == "" {
			missing = append(missing, FieldCounterparty)
		}
	}
	return missing
}

func (d *QueryDraft) Clone() *QueryDraft {
	if d == nil {
		return nil
	}
	c := *d
	c.CounterpartyID = cloneString(d.CounterpartyID)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}
