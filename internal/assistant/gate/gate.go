// Package gate validates completed drafts and hands them to the record and
// query backends, turning every outcome into an operator-facing message.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/common/validation"
	"ledger-assistant/internal/models"
)

var ErrNothingToExecute = errors.New("draft has no payload")

// Backend creates records and answers queries.
type Backend interface {
	CreatePurchase(ctx context.Context, d *models.TransactionDraft) (*models.Record, error)
	CreateOrder(ctx context.Context, d *models.TransactionDraft) (*models.Record, error)
	CreateManualTransaction(ctx context.Context, d *models.TransactionDraft) (*models.Record, error)
	CreateCounterparty(ctx context.Context, d *models.CounterpartyDraft) (*models.Record, error)
	RunProfitLoss(ctx context.Context, eventName string) (*models.ProfitLossReport, error)
	RunVendorBalance(ctx context.Context, vendorName string) (*models.VendorBalanceReport, error)
	RunSummary(ctx context.Context) (*models.SummaryReport, error)
}

// Notification describes one successful mutation.
type Notification struct {
	Kind      models.RecordKind `json:"kind"`
	RecordID  string            `json:"recordId"`
	Summary   string            `json:"summary"`
	Total     string            `json:"total"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Notifier interface {
	Publish(ctx context.Context, n Notification) error
}

type ExecutionRecorder interface {
	RecordExecution(kind, outcome string)
}

// Draft is the payload handed to the gate. Exactly one of the pointers is set.
type Draft struct {
	Transaction  *models.TransactionDraft
	Counterparty *models.CounterpartyDraft
	Query        *models.QueryDraft
}

func (d Draft) Kind() models.IntentKind {
	switch {
	case d.Transaction != nil:
		return d.Transaction.Kind()
	case d.Counterparty != nil:
		return models.IntentCreateCounterparty
	case d.Query != nil:
		return d.Query.Kind()
	}
	return models.IntentUnknown
}

// ValidationError carries field-level problems. The draft is left untouched.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "draft validation failed: " + strings.Join(e.Problems, "; ")
}

// Result is a successful execution.
type Result struct {
	Message     string
	Record      *models.Record
	QueryResult interface{}
	Mutated     bool
}

type Gate struct {
	backend  Backend
	notifier Notifier
	recorder ExecutionRecorder
	logger   logger.Logger
}

type Option func(*Gate)

func WithNotifier(n Notifier) Option {
	return func(g *Gate) { g.notifier = n }
}

func WithRecorder(r ExecutionRecorder) Option {
	return func(g *Gate) { g.recorder = r }
}

func New(backend Backend, log logger.Logger, opts ...Option) *Gate {
	g := &Gate{
		backend: backend,
		logger:  log.WithFields(map[string]interface{}{"component": "gate"}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Validate returns field-level problems for a draft, or nil when it may be
// confirmed. Queries are never validated here.
func (g *Gate) Validate(d Draft) []string {
	var (
		schema validation.Schema
		doc    map[string]interface{}
	)
	switch {
	case d.Transaction != nil:
		if d.Transaction.Kind() == models.IntentManualTransaction {
			schema = manualSchema(d.Transaction)
		} else {
			schema = tradeSchema(d.Transaction.Kind())
		}
		doc = transactionDocument(d.Transaction)
	case d.Counterparty != nil:
		schema = counterpartySchema
		doc = counterpartyDocument(d.Counterparty)
	default:
		return nil
	}

	result, err := validation.ValidateDocument(schema, doc)
	if err != nil {
		g.logger.Error("Schema validation failed to run", map[string]interface{}{"error": err})
		return []string{"the draft could not be checked"}
	}
	if result.Valid {
		return nil
	}
	problems := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		problems = append(problems, problemText(e))
	}
	return problems
}

func problemText(e validation.ValidationError) string {
	switch e.Code {
	case "REQUIRED":
		if e.Field == fieldType {
			return "transaction type is required"
		}
		return fmt.Sprintf("%s is required", e.Field)
	case "NUMBER_GTE":
		if e.Field == "quantity" {
			return "quantity must be at least 1"
		}
		return fmt.Sprintf("%s must be greater than 0", e.Field)
	case "ENUM":
		if e.Field == fieldType {
			return "transaction type is not valid for this draft"
		}
	case "PATTERN":
		switch e.Field {
		case "phone":
			return "phone must contain at least 7 digits"
		case "email":
			return "email is not a valid address"
		}
		return fmt.Sprintf("%s must not be blank", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Execute revalidates the draft and runs it. Backend failures are returned
// as-is; callers turn them into text with FriendlyError. Nothing is retried.
func (g *Gate) Execute(ctx context.Context, d Draft) (*Result, error) {
	kind := d.Kind()
	if kind == models.IntentUnknown {
		return nil, ErrNothingToExecute
	}
	if problems := g.Validate(d); len(problems) > 0 {
		g.record(kind, "invalid")
		return nil, &ValidationError{Problems: problems}
	}

	start := time.Now()
	res, err := g.dispatch(ctx, d)
	fields := map[string]interface{}{
		"kind":     string(kind),
		"duration": time.Since(start).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		g.logger.Error("Execution failed", fields)
		g.record(kind, "failed")
		return nil, err
	}
	g.logger.Info("Execution succeeded", fields)
	g.record(kind, "success")

	if res.Mutated && res.Record != nil {
		g.notify(ctx, res.Record)
	}
	return res, nil
}

func (g *Gate) dispatch(ctx context.Context, d Draft) (*Result, error) {
	switch {
	case d.Transaction != nil:
		return g.createTransaction(ctx, d.Transaction)
	case d.Counterparty != nil:
		rec, err := g.backend.CreateCounterparty(ctx, d.Counterparty)
		if err != nil {
			return nil, err
		}
		return &Result{
			Message: fmt.Sprintf("Counterparty %s (%s) created.", d.Counterparty.Name, d.Counterparty.Role),
			Record:  rec,
			Mutated: true,
		}, nil
	default:
		return g.runQuery(ctx, d.Query)
	}
}

func (g *Gate) createTransaction(ctx context.Context, d *models.TransactionDraft) (*Result, error) {
	var (
		rec *models.Record
		err error
	)
	switch d.Kind() {
	case models.IntentPurchase:
		rec, err = g.backend.CreatePurchase(ctx, d)
	case models.IntentOrder:
		rec, err = g.backend.CreateOrder(ctx, d)
	default:
		rec, err = g.backend.CreateManualTransaction(ctx, d)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Message: successMessage(d), Record: rec, Mutated: true}, nil
}

func successMessage(d *models.TransactionDraft) string {
	total := d.Total().StringFixed(2)
	switch d.Kind() {
	case models.IntentPurchase:
		return fmt.Sprintf("Purchase recorded: %d x %s (%s) from %s, total %s.", d.Quantity, eventLabel(d), d.Area, d.CounterpartyName, total)
	case models.IntentOrder:
		return fmt.Sprintf("Order recorded: %d x %s (%s) to %s, total %s.", d.Quantity, eventLabel(d), d.Area, d.CounterpartyName, total)
	}
	who := ""
	if d.CounterpartyName != "" {
		who = " with " + d.CounterpartyName
	}
	return fmt.Sprintf("%s of %s%s recorded (%s).", humanType(d.TransactionType), total, who, d.Mode)
}

func eventLabel(d *models.TransactionDraft) string {
	if d.EventName != "" {
		return d.EventName
	}
	return d.EventQuery
}

func humanType(t models.TransactionType) string {
	s := strings.ReplaceAll(string(t), "_", " ")
	if s == "" {
		return "Transaction"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (g *Gate) runQuery(ctx context.Context, q *models.QueryDraft) (*Result, error) {
	switch q.QueryType {
	case models.QueryProfit:
		rep, err := g.backend.RunProfitLoss(ctx, q.EventName)
		if err != nil {
			return nil, err
		}
		return &Result{
			Message: fmt.Sprintf("%s: %d tickets across %d records. Cost %s, target selling %s, projected profit %s.",
				rep.EventName, rep.TotalQuantity, rep.RecordCount,
				rep.TotalCost.StringFixed(2), rep.TargetSelling.StringFixed(2), rep.ProjectedProfit.StringFixed(2)),
			QueryResult: rep,
		}, nil
	case models.QueryBalance:
		rep, err := g.backend.RunVendorBalance(ctx, q.CounterpartyName)
		if err != nil {
			return nil, err
		}
		return &Result{
			Message: fmt.Sprintf("%s: balance %s (total %s, paid %s, pending %s, owed %s).",
				rep.VendorName, rep.Balance.StringFixed(2), rep.Totals.Total.StringFixed(2),
				rep.Totals.Paid.StringFixed(2), rep.Totals.Pending.StringFixed(2), rep.Totals.Owed.StringFixed(2)),
			QueryResult: rep,
		}, nil
	default:
		rep, err := g.backend.RunSummary(ctx)
		if err != nil {
			return nil, err
		}
		return &Result{
			Message: fmt.Sprintf("%d purchases, %d orders and %d manual transactions. Cost %s, sales %s.",
				rep.Purchases, rep.Orders, rep.ManualTransactions, rep.TotalCost.StringFixed(2), rep.TotalSales.StringFixed(2)),
			QueryResult: rep,
		}, nil
	}
}

func (g *Gate) notify(ctx context.Context, rec *models.Record) {
	if g.notifier == nil {
		return
	}
	n := Notification{
		Kind:      rec.Kind,
		RecordID:  rec.ID,
		Summary:   rec.Summary,
		Total:     rec.Total.StringFixed(2),
		CreatedAt: rec.CreatedAt,
	}
	if err := g.notifier.Publish(ctx, n); err != nil {
		g.logger.Warn("Notification publish failed", map[string]interface{}{
			"recordId": rec.ID,
			"error":    err.Error(),
		})
	}
}

func (g *Gate) record(kind models.IntentKind, outcome string) {
	if g.recorder != nil {
		g.recorder.RecordExecution(string(kind), outcome)
	}
}
