package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RecordKind string

const (
	RecordPurchase          RecordKind = "purchase"
	RecordOrder             RecordKind = "order"
	RecordManualTransaction RecordKind = "manual_transaction"
	RecordCounterparty      RecordKind = "counterparty"
)

// Record is the reference returned after a successful create call.
type Record struct {
	ID        string          `json:"id" db:"id"`
	Kind      RecordKind      `json:"kind"`
	Summary   string          `json:"summary"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

type ProfitLossReport struct {
	EventName       string          `json:"eventName"`
	TotalQuantity   int             `json:"totalQuantity"`
	TotalCost       decimal.Decimal `json:"totalCost"`
	TargetSelling   decimal.Decimal `json:"targetSelling"`
	ProjectedProfit decimal.Decimal `json:"projectedProfit"`
	RecordCount     int             `json:"recordCount"`
}

type BalanceTotals struct {
	Total   decimal.Decimal `json:"total"`
	Paid    decimal.Decimal `json:"paid"`
	Pending decimal.Decimal `json:"pending"`
	Owed    decimal.Decimal `json:"owed"`
}

type VendorBalanceReport struct {
	VendorID   string          `json:"vendorId"`
	VendorName string          `json:"vendorName"`
	Balance    decimal.Decimal `json:"balance"`
	Totals     BalanceTotals   `json:"totals"`
}

type SummaryReport struct {
	Purchases          int             `json:"purchases"`
	Orders             int             `json:"orders"`
	ManualTransactions int             `json:"manualTransactions"`
	TotalCost          decimal.Decimal `json:"totalCost"`
	TotalSales         decimal.Decimal `json:"totalSales"`
}
