package clarify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ledger-assistant/internal/assistant/classifier"
	"ledger-assistant/internal/assistant/gate"
	"ledger-assistant/internal/assistant/resolver"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/models"
)

// ==========================
// Mocks
// ==========================

type MockFixtures struct {
	mock.Mock
}

func (m *MockFixtures) Resolve(ctx context.Context, key, phrase string) ([]models.Fixture, error) {
	args := m.Called(ctx, key, phrase)
	fx, _ := args.Get(0).([]models.Fixture)
	return fx, args.Error(1)
}

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CreatePurchase(ctx context.Context, d *models.TransactionDraft) (*models.Record, error) {
	args := m.Called(ctx, d)
	rec, _ := args.Get(0).(*models.Record)
	return rec, args.Error(1)
}

func (m *MockBackend) CreateOrder(ctx context.Context, d *models.TransactionDraft) (*models.Record, error) {
	args := m.Called(ctx, d)
	rec, _ := args.Get(0).(*models.Record)
	return rec, args.Error(1)
}

func (m *MockBackend) CreateManualTransaction(ctx context.Context, d *models.TransactionDraft) (*models.Record, error) {
	args := m.Called(ctx, d)
	rec, _ := args.Get(0).(*models.Record)
	return rec, args.Error(1)
}

func (m *MockBackend) CreateCounterparty(ctx context.Context, d *models.CounterpartyDraft) (*models.Record, error) {
	args := m.Called(ctx, d)
	rec, _ := args.Get(0).(*models.Record)
	return rec, args.Error(1)
}

func (m *MockBackend) RunProfitLoss(ctx context.Context, eventName string) (*models.ProfitLossReport, error) {
	args := m.Called(ctx, eventName)
	rep, _ := args.Get(0).(*models.ProfitLossReport)
	return rep, args.Error(1)
}

func (m *MockBackend) RunVendorBalance(ctx context.Context, vendorName string) (*models.VendorBalanceReport, error) {
	args := m.Called(ctx, vendorName)
	rep, _ := args.Get(0).(*models.VendorBalanceReport)
	return rep, args.Error(1)
}

func (m *MockBackend) RunSummary(ctx context.Context) (*models.SummaryReport, error) {
	args := m.Called(ctx)
	rep, _ := args.Get(0).(*models.SummaryReport)
	return rep, args.Error(1)
}

type stageCounter struct {
	intents []string
	stages  []string
}

func (s *stageCounter) RecordIntent(kind string)         { s.intents = append(s.intents, kind) }
func (s *stageCounter) RecordClarification(stage string) { s.stages = append(s.stages, stage) }

// ==========================
// Helpers
// ==========================

const convID = "conv-1"

var (
	arsenalSpurs = models.Fixture{ID: "fx-1", HomeTeam: "Arsenal", AwayTeam: "Tottenham", Date: "2026-11-01T15:00:00Z", League: "Premier League"}
	spursArsenal = models.Fixture{ID: "fx-2", HomeTeam: "Tottenham", AwayTeam: "Arsenal", Date: "2027-03-14T16:30:00Z", League: "Premier League"}
)

func testDirs() models.Directories {
	return models.Directories{
		Vendors: []models.DirectoryEntry{{ID: "v-1", Name: "Benny"}, {ID: "v-2", Name: "Ali Saad"}},
		Banks:   []models.DirectoryEntry{{ID: "b-1", Name: "HSBC"}, {ID: "b-2", Name: "Barclays"}},
	}
}

type harness struct {
	machine  *Machine
	fixtures *MockFixtures
	backend  *MockBackend
	recorder *stageCounter
}

func newHarness(t *testing.T, opts ...Option) *harness {
	h := &harness{fixtures: &MockFixtures{}, backend: &MockBackend{}, recorder: &stageCounter{}}
	log := logger.NewTestLogger(t)
	g := gate.New(h.backend, log)
	opts = append([]Option{WithRecorder(h.recorder)}, opts...)
	h.machine = New(classifier.New(), h.fixtures, g, log, opts...)
	return h
}

func (h *harness) say(t *testing.T, st *models.ClarificationState, text string, dirs models.Directories) (Reply, *models.ClarificationState) {
	t.Helper()
	reply, next, err := h.machine.Handle(context.Background(), convID, st, Turn{Utterance: text}, dirs)
	require.NoError(t, err)
	return reply, next
}

func (h *harness) press(t *testing.T, st *models.ClarificationState, a Action, dirs models.Directories) (Reply, *models.ClarificationState) {
	t.Helper()
	reply, next, err := h.machine.Handle(context.Background(), convID, st, Turn{Action: &a}, dirs)
	require.NoError(t, err)
	return reply, next
}

func amount(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// ==========================
// Field filling
// ==========================

func TestHandle_AwaitingAmountReceivesNumber(t *testing.T) {
	h := newHarness(t)
	st := &models.ClarificationState{
		Stage:         models.StageAwaitingField,
		IntentKind:    models.IntentPurchase,
		AwaitingField: models.FieldAmount,
		Transaction: &models.TransactionDraft{
			TransactionType:  models.TransactionPurchase,
			CounterpartyName: "Benny",
			CounterpartyID:   models.StringPtr("v-1"),
			Quantity:         2,
			EventQuery:       "arsenal tottenham",
			EventID:          models.StringPtr("fx-1"),
			EventName:        "Arsenal vs Tottenham",
			Area:             "Short Upper",
			Direction:        models.DirectionOut,
		},
	}

	reply, next := h.say(t, st, "150", testDirs())

	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	require.NotNil(t, next)
	require.NotNil(t, next.Transaction.Amount)
	assert.True(t, next.Transaction.Amount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, confirmButtons(), reply.Buttons)
	assert.Nil(t, st.Transaction.Amount, "input state must not be mutated")
	h.fixtures.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_AwaitingFieldRejectsBadValue(t *testing.T) {
	h := newHarness(t)
	st := &models.ClarificationState{
		Stage:         models.StageAwaitingField,
		IntentKind:    models.IntentPurchase,
		AwaitingField: models.FieldQuantity,
		Transaction:   &models.TransactionDraft{TransactionType: models.TransactionPurchase, CounterpartyName: "Benny"},
	}

	reply, next := h.say(t, st, "a few", testDirs())

	assert.Equal(t, models.StageAwaitingField, reply.Stage)
	assert.Equal(t, "I need a whole number of tickets. How many tickets?", reply.Message)
	assert.Equal(t, st, next)
}

func TestHandle_MissingPriceThenAnswer(t *testing.T) {
	h := newHarness(t)
	h.fixtures.On("Resolve", mock.Anything, "conv-1:event", "arsenal tottenham").Return([]models.Fixture{arsenalSpurs}, nil).Once()

	reply, st := h.say(t, nil, "Bought from Benny 2 tickets Arsenal Spurs Short Upper", testDirs())
	assert.Equal(t, models.StageAwaitingField, reply.Stage)
	assert.Equal(t, models.FieldAmount, st.AwaitingField)
	assert.Equal(t, `What did they cost? Add "each" for a per-ticket price.`, reply.Message)
	require.NotNil(t, reply.Intent)
	assert.Equal(t, models.IntentPurchase, reply.Intent.Kind)
	assert.Equal(t, "v-1", *st.Transaction.CounterpartyID)
	assert.Equal(t, "fx-1", *st.Transaction.EventID)

	reply, st = h.say(t, st, "90 each", testDirs())
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.True(t, st.Transaction.PerUnit)
	assert.Contains(t, reply.Message, "90.00 each (total 180.00)")
	h.fixtures.AssertExpectations(t)
}

// ==========================
// Full flows
// ==========================

func TestHandle_PurchaseConfirmEndsTile(t *testing.T) {
	h := newHarness(t)
	h.fixtures.On("Resolve", mock.Anything, "conv-1:event", "arsenal tottenham").Return([]models.Fixture{arsenalSpurs}, nil).Once()
	h.backend.On("CreatePurchase", mock.Anything, mock.MatchedBy(func(d *models.TransactionDraft) bool {
		return *d.CounterpartyID == "v-1" && *d.EventID == "fx-1" && d.Total().Equal(decimal.NewFromInt(200))
	})).Return(&models.Record{ID: "p-1", Kind: models.RecordPurchase, Total: decimal.NewFromInt(200)}, nil).Once()

	reply, st := h.say(t, nil, "Bought from Benny 2 tickets Arsenal Spurs Short Upper 100 ea", testDirs())
	require.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, "Arsenal vs Tottenham", st.Transaction.EventName)
	assert.Contains(t, reply.Message, "Purchase from Benny: 2 x Arsenal vs Tottenham on Sun 01 Nov 2026, Short Upper, 100.00 each (total 200.00).")

	reply, st = h.say(t, st, "yes", testDirs())
	assert.Nil(t, st)
	assert.Equal(t, models.StageIdle, reply.Stage)
	assert.True(t, reply.TileEnded)
	assert.True(t, reply.Mutated)
	assert.Equal(t, "Purchase recorded: 2 x Arsenal vs Tottenham (Short Upper) from Benny, total 200.00.", reply.Message)
	h.backend.AssertExpectations(t)
	assert.Equal(t, []string{"ready_to_confirm", "idle"}, h.recorder.stages)
}

func TestHandle_ExecutionFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	st := &models.ClarificationState{
		Stage:      models.StageReadyToConfirm,
		IntentKind: models.IntentManualTransaction,
		Transaction: &models.TransactionDraft{
			TransactionType: models.TransactionPaymentMade, Category: models.CategoryPayment,
			Direction: models.DirectionOut, Mode: models.ModeCash,
			CounterpartyName: "Benny", CounterpartyID: models.StringPtr("v-1"), Amount: amount("3250"),
		},
	}
	h.backend.On("CreateManualTransaction", mock.Anything, mock.Anything).Return(nil, errors.New("network timeout")).Once()

	reply, next := h.press(t, st, Action{Type: models.ActionConfirm}, testDirs())

	assert.Nil(t, next)
	assert.Equal(t, models.StageIdle, reply.Stage)
	assert.False(t, reply.TileEnded)
	assert.Equal(t, "I couldn't reach the server. Please check the connection and try again.", reply.Message)
	assert.Equal(t, []string{"network timeout"}, reply.Errors)
	h.backend.AssertNumberOfCalls(t, "CreateManualTransaction", 1)
}

func TestHandle_PaymentAsksForBankThenCash(t *testing.T) {
	h := newHarness(t)

	reply, st := h.say(t, nil, "PAID BENNY 3250", testDirs())
	require.Equal(t, models.StageAwaitingField, reply.Stage)
	assert.Equal(t, models.FieldBank, st.AwaitingField)
	assert.Equal(t, "Benny", st.Transaction.CounterpartyName)
	assert.Equal(t, "v-1", *st.Transaction.CounterpartyID)

	reply, st = h.say(t, st, "cash", testDirs())
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, models.ModeCash, st.Transaction.Mode)
	assert.Equal(t, "Payment made 3250.00 with Benny in cash. Confirm?", reply.Message)
}

func TestHandle_UnknownBankIsAskedAgain(t *testing.T) {
	h := newHarness(t)

	reply, st := h.say(t, nil, "paid Benny 300 via Monzo", testDirs())
	require.Equal(t, models.StageAwaitingField, reply.Stage)
	assert.Equal(t, models.FieldBank, st.AwaitingField)
	assert.Equal(t, `I couldn't find a bank called "Monzo". Which bank or payment method? Reply "cash" for cash.`, reply.Message)

	reply, st = h.say(t, st, "hsbc", testDirs())
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, "b-1", *st.Transaction.BankID)
	assert.Equal(t, "HSBC", st.Transaction.BankName)
}

func TestHandle_BalanceQueryRunsImmediately(t *testing.T) {
	h := newHarness(t)
	report := &models.VendorBalanceReport{VendorID: "v-1", VendorName: "Benny", Balance: decimal.NewFromInt(150)}
	h.backend.On("RunVendorBalance", mock.Anything, "Benny").Return(report, nil).Once()

	reply, st := h.say(t, nil, "how much does benny owe us", testDirs())

	assert.Nil(t, st)
	assert.True(t, reply.TileEnded)
	assert.False(t, reply.Mutated)
	assert.Equal(t, report, reply.QueryResult)
	assert.Equal(t, "Benny: balance 150.00 (total 0.00, paid 0.00, pending 0.00, owed 0.00).", reply.Message)
}

// ==========================
// Disambiguation
// ==========================

func TestHandle_AmbiguousCounterpartyPickedByNumber(t *testing.T) {
	h := newHarness(t)
	dirs := models.Directories{Vendors: []models.DirectoryEntry{{ID: "v-7", Name: "Benny Smith"}, {ID: "v-8", Name: "Benny Jones"}}}
	h.fixtures.On("Resolve", mock.Anything, "conv-1:event", "arsenal tottenham").Return([]models.Fixture{arsenalSpurs}, nil).Once()

	reply, st := h.say(t, nil, "Bought from Benny 2 tickets Arsenal Spurs Short Upper 100 ea", dirs)
	require.Equal(t, models.StageAwaitingDisambiguation, reply.Stage)
	require.Len(t, st.Disambiguation.Candidates, 2)
	require.Len(t, reply.Buttons, 3)
	assert.Equal(t, models.ActionCreateNew, reply.Buttons[2].Action)
	assert.Contains(t, reply.Message, "1. Benny Smith\n2. Benny Jones")

	reply, st = h.say(t, st, "2", dirs)
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, "v-8", *st.Transaction.CounterpartyID)
	assert.Equal(t, "Benny Jones", st.Transaction.CounterpartyName)
}

func TestHandle_SingleMatchIsNotDisambiguated(t *testing.T) {
	h := newHarness(t)
	h.fixtures.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return([]models.Fixture{arsenalSpurs}, nil)

	reply, st := h.say(t, nil, "sold 2 tickets to ali saad arsenal v spurs vip 300 each", testDirs())
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, "v-2", *st.Transaction.CounterpartyID)
	assert.Equal(t, "Ali Saad", st.Transaction.CounterpartyName)
}

func TestHandle_EventChoiceWithoutAutoSelect(t *testing.T) {
	h := newHarness(t, WithAutoSelect(false))
	h.fixtures.On("Resolve", mock.Anything, "conv-1:event", "arsenal tottenham").Return([]models.Fixture{arsenalSpurs, spursArsenal}, nil).Once()

	reply, st := h.say(t, nil, "Bought from Benny 2 tickets Arsenal Spurs Short Upper 100 ea", testDirs())
	require.Equal(t, models.StageAwaitingDisambiguation, reply.Stage)
	assert.Equal(t, models.FieldEvent, st.Disambiguation.Field)
	require.Len(t, reply.Buttons, 2)
	assert.Equal(t, "fx-2", reply.Buttons[1].CandidateID)

	reply, st = h.press(t, st, Action{Type: models.ActionSelectCandidate, CandidateID: "fx-2"}, testDirs())
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, "fx-2", *st.Transaction.EventID)
	assert.Equal(t, "Tottenham vs Arsenal", st.Transaction.EventName)
	assert.Equal(t, time.Date(2027, 3, 14, 16, 30, 0, 0, time.UTC), *st.Transaction.EventDate)
}

func TestHandle_NoFixtureFoundAsksForEvent(t *testing.T) {
	h := newHarness(t)
	h.fixtures.On("Resolve", mock.Anything, "conv-1:event", "arsenal tottenham").Return([]models.Fixture{}, nil).Once()
	h.fixtures.On("Resolve", mock.Anything, "conv-1:event", "chelsea v everton").
		Return([]models.Fixture{{ID: "fx-3", HomeTeam: "Chelsea", AwayTeam: "Everton", Date: "2026-12-05T12:30:00Z"}}, nil).Once()

	reply, st := h.say(t, nil, "Bought from Benny 2 tickets Arsenal Spurs Short Upper 100 ea", testDirs())
	require.Equal(t, models.StageAwaitingField, reply.Stage)
	assert.Equal(t, models.FieldEvent, st.AwaitingField)
	assert.Equal(t, `I couldn't find an upcoming fixture matching "arsenal tottenham". Which event is this for?`, reply.Message)

	reply, st = h.say(t, st, "Chelsea v Everton", testDirs())
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, "fx-3", *st.Transaction.EventID)
	h.fixtures.AssertExpectations(t)
}

func TestHandle_CreateCounterpartySubFlowResumesDraft(t *testing.T) {
	h := newHarness(t)
	dirs := models.Directories{}
	h.fixtures.On("Resolve", mock.Anything, "conv-1:event", "arsenal tottenham").Return([]models.Fixture{arsenalSpurs}, nil).Once()
	h.backend.On("CreateCounterparty", mock.Anything, mock.MatchedBy(func(d *models.CounterpartyDraft) bool {
		return d.Name == "Benny" && d.Phone == "+447700900123" && d.Role == "trader"
	})).Return(&models.Record{ID: "c-9", Kind: models.RecordCounterparty}, nil).Once()

	reply, st := h.say(t, nil, "Bought from Benny 2 tickets Arsenal Spurs Short Upper 100 ea", dirs)
	require.Equal(t, models.StageAwaitingDisambiguation, reply.Stage)
	assert.True(t, st.Disambiguation.NotFound)
	assert.Equal(t, `I couldn't find a counterparty called "Benny". Create it?`, reply.Message)
	assert.Equal(t, models.ActionCreateNew, reply.Buttons[0].Action)

	reply, st = h.press(t, st, Action{Type: models.ActionCreateNew}, dirs)
	require.Equal(t, models.StageAwaitingField, reply.Stage)
	assert.Equal(t, models.FieldPhone, st.AwaitingField)
	assert.Equal(t, "What is Benny's phone number?", reply.Message)
	require.NotNil(t, st.Parent)

	reply, st = h.say(t, st, "+44 7700 900123", dirs)
	require.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, "New trader Benny, phone +447700900123. Confirm?", reply.Message)

	reply, st = h.press(t, st, Action{Type: models.ActionConfirm}, dirs)
	require.NotNil(t, st)
	assert.Nil(t, st.Parent)
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.True(t, reply.Mutated)
	assert.False(t, reply.TileEnded)
	assert.Equal(t, "c-9", *st.Transaction.CounterpartyID)
	assert.Contains(t, reply.Message, "Counterparty Benny (trader) created.")
	h.backend.AssertExpectations(t)
}

func TestHandle_RespellingReResolves(t *testing.T) {
	h := newHarness(t)
	h.fixtures.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return([]models.Fixture{arsenalSpurs}, nil)

	reply, st := h.say(t, nil, "Bought from Beny 2 tickets Arsenal Spurs Short Upper 100 ea", testDirs())
	require.Equal(t, models.StageAwaitingDisambiguation, reply.Stage)

	reply, st = h.say(t, st, "benny", testDirs())
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, "v-1", *st.Transaction.CounterpartyID)
}

// ==========================
// Cancellation and idle handling
// ==========================

func TestHandle_CancelClearsState(t *testing.T) {
	h := newHarness(t)
	st := &models.ClarificationState{
		Stage:         models.StageAwaitingField,
		AwaitingField: models.FieldPhone,
		Counterparty:  &models.CounterpartyDraft{Name: "Maya", Role: "trader"},
		Parent:        &models.ClarificationState{Stage: models.StageIdle, Transaction: &models.TransactionDraft{TransactionType: models.TransactionPurchase}},
	}

	for _, text := range []string{"cancel", "Never mind", "forget it!"} {
		reply, next := h.say(t, st, text, testDirs())
		assert.Nil(t, next, text)
		assert.Equal(t, msgCancelled, reply.Message)
		assert.Equal(t, models.StageIdle, reply.Stage)
	}

	reply, next := h.press(t, st, Action{Type: models.ActionCancel}, testDirs())
	assert.Nil(t, next)
	assert.Equal(t, msgCancelled, reply.Message)
}

func TestHandle_UnknownAndGreeting(t *testing.T) {
	h := newHarness(t)

	reply, st := h.say(t, nil, "the weather is nice", testDirs())
	assert.Nil(t, st)
	assert.Equal(t, msgNotUnderstood, reply.Message)
	assert.Equal(t, models.IntentUnknown, reply.Intent.Kind)

	open := &models.ClarificationState{
		Stage:         models.StageAwaitingField,
		AwaitingField: models.FieldAmount,
		Transaction:   &models.TransactionDraft{TransactionType: models.TransactionSalary, Category: models.CategorySalary},
	}
	reply, st = h.say(t, open, "   ", testDirs())
	assert.Equal(t, open, st)
	assert.Equal(t, models.StageAwaitingField, reply.Stage)

	ready := &models.ClarificationState{
		Stage:       models.StageReadyToConfirm,
		Transaction: &models.TransactionDraft{TransactionType: models.TransactionSalary, Category: models.CategorySalary, Mode: models.ModeCash, Amount: amount("2000")},
	}
	reply, st = h.say(t, ready, "hello", testDirs())
	assert.Equal(t, ready, st)
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, models.IntentGreeting, reply.Intent.Kind)

	reply, st = h.say(t, ready, "what is this", testDirs())
	assert.Equal(t, ready, st)
	assert.Equal(t, confirmButtons(), reply.Buttons)
}

func TestHandle_NewCommandReplacesPendingConfirmation(t *testing.T) {
	h := newHarness(t)
	ready := &models.ClarificationState{
		Stage:       models.StageReadyToConfirm,
		Transaction: &models.TransactionDraft{TransactionType: models.TransactionSalary, Category: models.CategorySalary, Mode: models.ModeCash, Amount: amount("2000")},
	}

	reply, st := h.say(t, ready, "bank charged 15", testDirs())
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, models.TransactionBankCharge, st.Transaction.TransactionType)
}

func TestHandle_ConfirmWithoutDraft(t *testing.T) {
	h := newHarness(t)
	reply, st := h.press(t, nil, Action{Type: models.ActionConfirm}, testDirs())
	assert.Nil(t, st)
	assert.Equal(t, msgNothingOpen, reply.Message)
}

func TestHandle_SupersededLookupKeepsState(t *testing.T) {
	h := newHarness(t)
	h.fixtures.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(nil, resolver.ErrSuperseded)

	_, next, err := h.machine.Handle(context.Background(), convID, nil, Turn{Utterance: "Bought from Benny 2 tickets Arsenal Spurs Short Upper 100 ea"}, testDirs())
	assert.ErrorIs(t, err, resolver.ErrSuperseded)
	assert.Nil(t, next)
}

func TestHandle_EditReplacesDraft(t *testing.T) {
	h := newHarness(t)
	ready := &models.ClarificationState{
		Stage: models.StageReadyToConfirm,
		Transaction: &models.TransactionDraft{
			TransactionType: models.TransactionSalary, Category: models.CategorySalary,
			Mode: models.ModeCash, Amount: amount("2000"),
		},
	}
	edited := ready.Transaction.Clone()
	edited.Amount = amount("0")

	reply, st := h.press(t, ready, Action{Type: models.ActionEdit, Transaction: edited}, testDirs())
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Equal(t, []string{"amount must be greater than 0"}, reply.Errors)
	assert.True(t, st.Transaction.Amount.IsZero())
	assert.Equal(t, editButtons(), reply.Buttons)
}

func TestHandle_EditWithoutTypeKeepsOriginalType(t *testing.T) {
	h := newHarness(t)
	reply, st := h.say(t, nil, "Paid Benny 500 cash", testDirs())
	require.Equal(t, models.StageReadyToConfirm, reply.Stage, reply.Message)
	require.Equal(t, models.TransactionPaymentMade, st.Transaction.TransactionType)

	edited := &models.TransactionDraft{Amount: amount("100"), Mode: models.ModeCash}
	edited.CounterpartyName = st.Transaction.CounterpartyName
	edited.CounterpartyID = st.Transaction.CounterpartyID
	edited.Category = st.Transaction.Category
	edited.Direction = st.Transaction.Direction

	reply, st = h.press(t, st, Action{Type: models.ActionEdit, Transaction: edited}, testDirs())
	require.Equal(t, models.StageReadyToConfirm, reply.Stage, reply.Message)
	assert.Empty(t, reply.Errors)
	assert.Equal(t, models.TransactionPaymentMade, st.Transaction.TransactionType)
	assert.True(t, st.Transaction.Amount.Equal(decimal.NewFromInt(100)))

	h.backend.On("CreateManualTransaction", mock.Anything, mock.MatchedBy(func(d *models.TransactionDraft) bool {
		return d.TransactionType == models.TransactionPaymentMade && d.Amount.Equal(decimal.NewFromInt(100))
	})).Return(&models.Record{ID: "m-1", Kind: models.RecordManualTransaction, Total: decimal.NewFromInt(100)}, nil).Once()

	assert.NotPanics(t, func() {
		reply, st = h.say(t, st, "yes", testDirs())
	})
	assert.Nil(t, st)
	assert.True(t, reply.TileEnded)
	assert.Contains(t, reply.Message, "Payment made of 100.00")
	h.backend.AssertExpectations(t)
}

func TestHandle_EditCannotChangeKind(t *testing.T) {
	h := newHarness(t)
	ready := &models.ClarificationState{
		Stage: models.StageReadyToConfirm,
		Transaction: &models.TransactionDraft{
			TransactionType: models.TransactionSalary, Category: models.CategorySalary,
			Mode: models.ModeCash, Direction: models.DirectionOut, Amount: amount("2000"),
		},
	}
	edited := ready.Transaction.Clone()
	edited.TransactionType = models.TransactionPurchase

	reply, st := h.press(t, ready, Action{Type: models.ActionEdit, Transaction: edited}, testDirs())
	assert.Equal(t, models.StageReadyToConfirm, reply.Stage)
	assert.Contains(t, reply.Message, "different kind of record")
	assert.Equal(t, models.TransactionSalary, st.Transaction.TransactionType)
	h.backend.AssertNotCalled(t, "CreatePurchase", mock.Anything, mock.Anything)
}
