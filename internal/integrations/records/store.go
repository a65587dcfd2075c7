// Package records persists drafts as ledger records in Postgres and answers
// the profit and balance queries.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/models"
)

var (
	ErrRecordCreateFailed    = errors.New("RECORD_CREATE_FAILED")
	ErrQueryExecutionFailed  = errors.New("QUERY_EXECUTION_FAILED")
	ErrDuplicateCounterparty = errors.New("counterparty already exists")
	ErrCounterpartyNotFound  = errors.New("counterparty not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrMissingCounterparty   = errors.New("counterparty id is missing")
)

type Store struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func NewStore(db *sql.DB, log logger.Logger, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "records"}),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const (
	insertPurchaseSQL = `INSERT INTO purchases (id, counterparty_id, event_id, event_name, event_date, quantity, area, block, row_label, seats, unit_price, total, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	insertOrderSQL = `INSERT INTO orders (id, counterparty_id, event_id, event_name, event_date, quantity, area, block, row_label, seats, unit_price, total, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	insertManualSQL = `INSERT INTO manual_transactions (id, type, direction, category, mode, counterparty_id, bank_id, amount, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	insertCounterpartySQL = `INSERT INTO counterparties (id, name, phone, email, role, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)`
	counterpartyExistsSQL     = `SELECT EXISTS (SELECT 1 FROM counterparties WHERE LOWER(name) = LOWER($1))`
	adjustCounterpartySQL     = `UPDATE counterparties SET balance = balance + $1 WHERE id = $2`
	adjustBankSQL             = `UPDATE banks SET balance = balance + $1 WHERE id = $2`
	findCounterpartySQL       = `SELECT id, name, balance FROM counterparties WHERE LOWER(name) = LOWER($1)`
	counterpartyTotalsSQL     = `SELECT
		COALESCE((SELECT SUM(total) FROM purchases WHERE counterparty_id = $1), 0)
			+ COALESCE((SELECT SUM(total) FROM orders WHERE counterparty_id = $1), 0),
		COALESCE((SELECT SUM(amount) FROM manual_transactions WHERE counterparty_id = $1 AND category = 'payment'), 0)`
	eventPurchasesSQL = `SELECT COALESCE(SUM(quantity), 0), COALESCE(SUM(total), 0), COUNT(*) FROM purchases WHERE event_name ILIKE $1`
	eventOrdersSQL    = `SELECT COALESCE(SUM(total), 0), COUNT(*) FROM orders WHERE event_name ILIKE $1`
	summarySQL        = `SELECT
		(SELECT COUNT(*) FROM purchases),
		(SELECT COUNT(*) FROM orders),
		(SELECT COUNT(*) FROM manual_transactions),
		(SELECT COALESCE(SUM(total), 0) FROM purchases),
		(SELECT COALESCE(SUM(total), 0) FROM orders)`
)

// CreatePurchase books a purchase. The counterparty balance moves down by the
// total since the business now owes the seller.
func (s *Store) CreatePurchase(ctx context.Context, d *models.TransactionDraft) (*models.Record, error) {
	return s.createTrade(ctx, insertPurchaseSQL, models.RecordPurchase, d, d.Total().Neg())
}

// CreateOrder books a sale; the buyer now owes the business.
func (s *Store) CreateOrder(ctx context.Context, d *models.TransactionDraft) (*models.Record, error) {
	return s.createTrade(ctx, insertOrderSQL, models.RecordOrder, d, d.Total())
}

func (s *Store) createTrade(ctx context.Context, insert string, kind models.RecordKind, d *models.TransactionDraft, delta decimal.Decimal) (*models.Record, error) {
	if d.CounterpartyID == nil {
		return nil, ErrMissingCounterparty
	}
	rec := &models.Record{
		ID:        s.newID(),
		Kind:      kind,
		Summary:   fmt.Sprintf("%d x %s (%s), %s", d.Quantity, eventLabel(d), d.Area, d.CounterpartyName),
		Total:     d.Total(),
		CreatedAt: s.now().UTC(),
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insert,
			rec.ID, *d.CounterpartyID, nullable(d.EventID), eventLabel(d), nullableTime(d.EventDate),
			d.Quantity, d.Area, d.Block, d.Row, d.Seats,
			d.UnitPrice(), rec.Total, d.Notes, rec.CreatedAt,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, adjustCounterpartySQL, delta, *d.CounterpartyID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRecordCreateFailed, kind, err)
	}

	s.logger.Info("Record created", map[string]interface{}{
		"kind":  string(kind),
		"id":    rec.ID,
		"total": rec.Total.StringFixed(2),
	})
	return rec, nil
}

// CreateManualTransaction books a payment, charge, salary or fee. Payments
// move the counterparty balance; any named bank moves by the signed amount.
func (s *Store) CreateManualTransaction(ctx context.Context, d *models.TransactionDraft) (*models.Record, error) {
	rec := &models.Record{
		ID:        s.newID(),
		Kind:      models.RecordManualTransaction,
		Summary:   manualSummary(d),
		Total:     d.Total(),
		CreatedAt: s.now().UTC(),
	}

	signed := rec.Total
	if d.Direction == models.DirectionOut {
		signed = signed.Neg()
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertManualSQL,
			rec.ID, string(d.TransactionType), string(d.Direction), string(d.Category), string(d.Mode),
			nullable(d.CounterpartyID), nullable(d.BankID), rec.Total, d.Notes, rec.CreatedAt,
		); err != nil {
			return err
		}
		if d.Category == models.CategoryPayment && d.CounterpartyID != nil {
			// Paying out settles what we owe; receiving settles what they owe.
			if _, err := tx.ExecContext(ctx, adjustCounterpartySQL, signed.Neg(), *d.CounterpartyID); err != nil {
				return err
			}
		}
		if d.Mode == models.ModeStandard && d.BankID != nil {
			if _, err := tx.ExecContext(ctx, adjustBankSQL, signed, *d.BankID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: manual transaction: %v", ErrRecordCreateFailed, err)
	}

	s.logger.Info("Record created", map[string]interface{}{
		"kind":     string(rec.Kind),
		"id":       rec.ID,
		"category": string(d.Category),
		"total":    rec.Total.StringFixed(2),
	})
	return rec, nil
}

func (s *Store) CreateCounterparty(ctx context.Context, d *models.CounterpartyDraft) (*models.Record, error) {
	name := strings.TrimSpace(d.Name)

	var exists bool
	if err := s.db.QueryRowContext(ctx, counterpartyExistsSQL, name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%w: counterparty lookup: %v", ErrRecordCreateFailed, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateCounterparty, name)
	}

	role := d.Role
	if role == "" {
		role = models.DefaultCounterpartyRole
	}
	rec := &models.Record{
		ID:        s.newID(),
		Kind:      models.RecordCounterparty,
		Summary:   name,
		Total:     decimal.Zero,
		CreatedAt: s.now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx, insertCounterpartySQL, rec.ID, name, d.Phone, d.Email, role, rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: counterparty: %v", ErrRecordCreateFailed, err)
	}

	s.logger.Info("Counterparty created", map[string]interface{}{"id": rec.ID, "name": name})
	return rec, nil
}

func (s *Store) RunProfitLoss(ctx context.Context, eventName string) (*models.ProfitLossReport, error) {
	pattern := likePattern(eventName)
	rep := &models.ProfitLossReport{EventName: strings.TrimSpace(eventName)}

	var purchases, orders int
	if err := s.db.QueryRowContext(ctx, eventPurchasesSQL, pattern).
		Scan(&rep.TotalQuantity, &rep.TotalCost, &purchases); err != nil {
		return nil, fmt.Errorf("%w: profit purchases: %v", ErrQueryExecutionFailed, err)
	}
	if err := s.db.QueryRowContext(ctx, eventOrdersSQL, pattern).
		Scan(&rep.TargetSelling, &orders); err != nil {
		return nil, fmt.Errorf("%w: profit orders: %v", ErrQueryExecutionFailed, err)
	}

	rep.RecordCount = purchases + orders
	if rep.RecordCount == 0 {
		return nil, fmt.Errorf("%w: no records for %q", ErrEventNotFound, rep.EventName)
	}
	rep.ProjectedProfit = rep.TargetSelling.Sub(rep.TotalCost)
	return rep, nil
}

// RunVendorBalance reports the running balance for one counterparty. A
// negative balance is money the business owes.
func (s *Store) RunVendorBalance(ctx context.Context, vendorName string) (*models.VendorBalanceReport, error) {
	rep := &models.VendorBalanceReport{}
	err := s.db.QueryRowContext(ctx, findCounterpartySQL, strings.TrimSpace(vendorName)).
		Scan(&rep.VendorID, &rep.VendorName, &rep.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrCounterpartyNotFound, vendorName)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: balance: %v", ErrQueryExecutionFailed, err)
	}

	if err := s.db.QueryRowContext(ctx, counterpartyTotalsSQL, rep.VendorID).
		Scan(&rep.Totals.Total, &rep.Totals.Paid); err != nil {
		return nil, fmt.Errorf("%w: balance totals: %v", ErrQueryExecutionFailed, err)
	}

	rep.Totals.Pending = decimal.Max(rep.Totals.Total.Sub(rep.Totals.Paid), decimal.Zero)
	if rep.Balance.IsNegative() {
		rep.Totals.Owed = rep.Balance.Neg()
	} else {
		rep.Totals.Owed = decimal.Zero
	}
	return rep, nil
}

func (s *Store) RunSummary(ctx context.Context) (*models.SummaryReport, error) {
	rep := &models.SummaryReport{}
	if err := s.db.QueryRowContext(ctx, summarySQL).Scan(
		&rep.Purchases, &rep.Orders, &rep.ManualTransactions, &rep.TotalCost, &rep.TotalSales,
	); err != nil {
		return nil, fmt.Errorf("%w: summary: %v", ErrQueryExecutionFailed, err)
	}
	return rep, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("Rollback failed", map[string]interface{}{"error": rbErr.Error()})
		}
		return err
	}
	return tx.Commit()
}

// likePattern turns "arsenal vs tottenham" into "%arsenal%vs%tottenham%".
func likePattern(name string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	tokens := strings.Fields(strings.ToLower(name))
	for i, tok := range tokens {
		tokens[i] = escaper.Replace(tok)
	}
	return "%" + strings.Join(tokens, "%") + "%"
}

func eventLabel(d *models.TransactionDraft) string {
	if d.EventName != "" {
		return d.EventName
	}
	return d.EventQuery
}

func manualSummary(d *models.TransactionDraft) string {
	parts := []string{strings.ReplaceAll(string(d.TransactionType), "_", " ")}
	if d.CounterpartyName != "" {
		parts = append(parts, d.CounterpartyName)
	}
	if d.BankName != "" {
		parts = append(parts, d.BankName)
	} else if d.Mode == models.ModeCash {
		parts = append(parts, "cash")
	}
	return strings.Join(parts, ", ")
}

func nullable(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
