// Package clarify runs the per-conversation clarification state machine. The
// state is a plain value handed in and returned on every turn; the machine
// itself holds no conversation data.
package clarify

import (
	"context"
	"errors"
	"strings"

	"ledger-assistant/internal/assistant/gate"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/models"
)

type Classifier interface {
	Classify(text string) models.Intent
}

// FixtureLookup resolves an event phrase against the catalog. A newer call
// for the same key supersedes an older one still in flight.
type FixtureLookup interface {
	Resolve(ctx context.Context, key, phrase string) ([]models.Fixture, error)
}

type Executor interface {
	Validate(d gate.Draft) []string
	Execute(ctx context.Context, d gate.Draft) (*gate.Result, error)
}

type Recorder interface {
	RecordIntent(kind string)
	RecordClarification(stage string)
}

// Action is a button press or an edited draft sent back by the operator.
type Action struct {
	Type         models.ActionType         `json:"type"`
	CandidateID  string                    `json:"candidateId,omitempty"`
	Transaction  *models.TransactionDraft  `json:"transaction,omitempty"`
	Counterparty *models.CounterpartyDraft `json:"counterparty,omitempty"`
}

type Turn struct {
	Utterance string
	Action    *Action
}

type Reply struct {
	Message     string                `json:"reply"`
	Stage       models.Stage          `json:"stage"`
	Intent      *models.Intent        `json:"intent,omitempty"`
	Buttons     []models.ActionButton `json:"buttons,omitempty"`
	Errors      []string              `json:"errors,omitempty"`
	TileEnded   bool                  `json:"tileEnded"`
	Mutated     bool                  `json:"mutated"`
	QueryResult interface{}           `json:"queryResult,omitempty"`
}

type Machine struct {
	classifier Classifier
	fixtures   FixtureLookup
	executor   Executor
	recorder   Recorder
	logger     logger.Logger
	autoSelect bool
}

type Option func(*Machine)

// WithAutoSelect accepts the earliest upcoming fixture instead of asking.
func WithAutoSelect(on bool) Option {
	return func(m *Machine) { m.autoSelect = on }
}

func WithRecorder(r Recorder) Option {
	return func(m *Machine) { m.recorder = r }
}

func New(cls Classifier, fixtures FixtureLookup, exec Executor, log logger.Logger, opts ...Option) *Machine {
	m := &Machine{
		classifier: cls,
		fixtures:   fixtures,
		executor:   exec,
		logger:     log.WithFields(map[string]interface{}{"component": "clarify"}),
		autoSelect: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// turn carries the per-call inputs through the helpers.
type turn struct {
	convID string
	dirs   models.Directories
	notes  []string
}

// Handle processes one turn and returns the reply with the next state. A nil
// state means the conversation is idle. The only errors returned are context
// cancellation and a superseded fixture lookup; in both cases the caller must
// keep the previous state.
func (m *Machine) Handle(ctx context.Context, convID string, state *models.ClarificationState, in Turn, dirs models.Directories) (Reply, *models.ClarificationState, error) {
	t := &turn{convID: convID, dirs: dirs}
	st := state.Clone()

	reply, next, err := m.route(ctx, t, st, in)
	if err != nil {
		return Reply{}, state, err
	}
	reply.Stage = next.StageOrIdle()
	if len(t.notes) > 0 {
		reply.Message = strings.Join(append(t.notes, reply.Message), " ")
	}
	if m.recorder != nil {
		m.recorder.RecordClarification(string(reply.Stage))
	}
	m.logger.Info("Turn handled", map[string]interface{}{
		"conversationId": convID,
		"from":           string(state.StageOrIdle()),
		"to":             string(reply.Stage),
		"tileEnded":      reply.TileEnded,
	})
	return reply, next, nil
}

func (m *Machine) route(ctx context.Context, t *turn, st *models.ClarificationState, in Turn) (Reply, *models.ClarificationState, error) {
	if in.Action != nil {
		return m.handleAction(ctx, t, st, in.Action)
	}

	text := strings.TrimSpace(in.Utterance)
	if isCancel(text) {
		return m.cancel(st)
	}

	switch st.StageOrIdle() {
	case models.StageAwaitingField:
		return m.fillField(ctx, t, st, text)
	case models.StageAwaitingDisambiguation:
		return m.answerDisambiguation(ctx, t, st, text)
	case models.StageReadyToConfirm:
		switch {
		case isYes(text):
			return m.confirm(ctx, t, st)
		case isNo(text):
			return m.cancel(st)
		}
	}
	return m.fresh(ctx, t, st, text)
}

func (m *Machine) handleAction(ctx context.Context, t *turn, st *models.ClarificationState, a *Action) (Reply, *models.ClarificationState, error) {
	switch a.Type {
	case models.ActionCancel:
		return m.cancel(st)
	case models.ActionConfirm:
		return m.confirm(ctx, t, st)
	case models.ActionSelectCandidate:
		if st.StageOrIdle() != models.StageAwaitingDisambiguation {
			return Reply{Message: msgStaleOption}, st, nil
		}
		for _, c := range st.Disambiguation.Candidates {
			if c.ID == a.CandidateID {
				return m.selectCandidate(ctx, t, st, c)
			}
		}
		return m.reprompt(st, msgStaleOption)
	case models.ActionCreateNew:
		if st.StageOrIdle() != models.StageAwaitingDisambiguation || st.Disambiguation.Field != models.FieldCounterparty {
			return Reply{Message: msgStaleOption}, st, nil
		}
		return m.startCreate(ctx, t, st)
	case models.ActionEdit:
		return m.edit(ctx, t, st, a)
	}
	return Reply{Message: msgNotUnderstood}, st, nil
}

// fresh classifies text from scratch. Greetings and unknown input leave any
// open question untouched.
func (m *Machine) fresh(ctx context.Context, t *turn, prev *models.ClarificationState, text string) (Reply, *models.ClarificationState, error) {
	intent := m.classifier.Classify(text)
	if m.recorder != nil {
		m.recorder.RecordIntent(string(intent.Kind))
	}
	m.logger.Info("Utterance classified", map[string]interface{}{
		"conversationId": t.convID,
		"intent":         string(intent.Kind),
		"confidence":     intent.Confidence,
		"missing":        len(intent.MissingFields),
	})

	switch intent.Kind {
	case models.IntentGreeting:
		return Reply{Message: intent.Reply, Intent: &intent}, prev, nil
	case models.IntentUnknown:
		reply := Reply{Message: msgNotUnderstood, Intent: &intent}
		if prev.StageOrIdle() == models.StageReadyToConfirm {
			reply.Buttons = confirmButtons()
		}
		return reply, prev, nil
	}

	st := &models.ClarificationState{
		Stage:        models.StageIdle,
		IntentKind:   intent.Kind,
		Transaction:  intent.Transaction.Clone(),
		Counterparty: intent.Counterparty.Clone(),
		Query:        intent.Query.Clone(),
	}
	reply, next, err := m.advance(ctx, t, st)
	if err != nil {
		return Reply{}, nil, err
	}
	reply.Intent = &intent
	return reply, next, nil
}

// advance resolves references, asks for the first missing field, runs
// queries, and otherwise parks the draft for confirmation.
func (m *Machine) advance(ctx context.Context, t *turn, st *models.ClarificationState) (Reply, *models.ClarificationState, error) {
	st.Stage = models.StageIdle
	st.AwaitingField = ""
	st.Disambiguation = nil

	if dis, err := m.resolveReferences(ctx, t, st); err != nil {
		return Reply{}, nil, err
	} else if dis != nil {
		st.Stage = models.StageAwaitingDisambiguation
		st.Disambiguation = dis
		return Reply{Message: disambiguationPrompt(dis), Buttons: disambiguationButtons(dis)}, st, nil
	}

	if missing := st.MissingFields(); len(missing) > 0 {
		st.Stage = models.StageAwaitingField
		st.AwaitingField = missing[0]
		return Reply{Message: question(st, missing[0])}, st, nil
	}

	if st.Query != nil {
		return m.execute(ctx, t, st)
	}

	st.Stage = models.StageReadyToConfirm
	if problems := m.executor.Validate(draftOf(st)); len(problems) > 0 {
		return Reply{
			Message: "Please fix: " + strings.Join(problems, "; ") + ".",
			Errors:  problems,
			Buttons: editButtons(),
		}, st, nil
	}
	return Reply{Message: summary(st) + " Confirm?", Buttons: confirmButtons()}, st, nil
}

func (m *Machine) confirm(ctx context.Context, t *turn, st *models.ClarificationState) (Reply, *models.ClarificationState, error) {
	if st.StageOrIdle() != models.StageReadyToConfirm {
		if st == nil {
			return Reply{Message: msgNothingOpen}, nil, nil
		}
		return m.reprompt(st, "It isn't ready to confirm yet.")
	}
	return m.execute(ctx, t, st)
}

// execute runs the draft through the gate. Validation problems keep the
// draft; any other failure discards it.
func (m *Machine) execute(ctx context.Context, t *turn, st *models.ClarificationState) (Reply, *models.ClarificationState, error) {
	res, err := m.executor.Execute(ctx, draftOf(st))
	if err != nil {
		var verr *gate.ValidationError
		if errors.As(err, &verr) {
			st.Stage = models.StageReadyToConfirm
			return Reply{
				Message: "Please fix: " + strings.Join(verr.Problems, "; ") + ".",
				Errors:  verr.Problems,
				Buttons: editButtons(),
			}, st, nil
		}
		if ctx.Err() != nil {
			return Reply{}, nil, ctx.Err()
		}
		return Reply{Message: gate.FriendlyError(err), Errors: []string{err.Error()}}, nil, nil
	}

	if st.Parent != nil && st.Counterparty != nil && res.Record != nil {
		return m.resumeParent(ctx, t, st, res)
	}
	return Reply{
		Message:     res.Message,
		TileEnded:   true,
		Mutated:     res.Mutated,
		QueryResult: res.QueryResult,
	}, nil, nil
}

// resumeParent substitutes a freshly created counterparty into the
// suspended draft and continues it.
func (m *Machine) resumeParent(ctx context.Context, t *turn, child *models.ClarificationState, res *gate.Result) (Reply, *models.ClarificationState, error) {
	parent := child.Parent
	id := res.Record.ID
	switch {
	case parent.Transaction != nil:
		parent.Transaction.CounterpartyID = &id
		parent.Transaction.CounterpartyName = child.Counterparty.Name
	case parent.Query != nil:
		parent.Query.CounterpartyID = &id
		parent.Query.CounterpartyName = child.Counterparty.Name
	}
	t.notes = append(t.notes, res.Message)

	reply, next, err := m.advance(ctx, t, parent)
	if err != nil {
		return Reply{}, nil, err
	}
	reply.Mutated = true
	return reply, next, nil
}

func (m *Machine) cancel(st *models.ClarificationState) (Reply, *models.ClarificationState, error) {
	if st == nil {
		return Reply{Message: msgNothingOpen}, nil, nil
	}
	return Reply{Message: msgCancelled}, nil, nil
}

// edit replaces the draft with the operator's edited copy and re-checks it.
func (m *Machine) edit(ctx context.Context, t *turn, st *models.ClarificationState, a *Action) (Reply, *models.ClarificationState, error) {
	if st == nil {
		return Reply{Message: msgNothingOpen}, nil, nil
	}
	switch {
	case a.Transaction != nil && st.Transaction != nil:
		edited := a.Transaction.Clone()
		if edited.TransactionType == "" {
			edited.TransactionType = st.Transaction.TransactionType
		}
		if edited.Kind() != st.Transaction.Kind() {
			return m.reprompt(st, "An edit can't turn this into a different kind of record.")
		}
		st.Transaction = edited
	case a.Counterparty != nil && st.Counterparty != nil:
		st.Counterparty = a.Counterparty.Clone()
	default:
		return m.reprompt(st, "Send the edited draft back when you're done.")
	}
	return m.advance(ctx, t, st)
}

// reprompt repeats the current question unchanged.
func (m *Machine) reprompt(st *models.ClarificationState, prefix string) (Reply, *models.ClarificationState, error) {
	var msg string
	var buttons []models.ActionButton
	switch st.Stage {
	case models.StageAwaitingField:
		msg = question(st, st.AwaitingField)
	case models.StageAwaitingDisambiguation:
		msg = disambiguationPrompt(st.Disambiguation)
		buttons = disambiguationButtons(st.Disambiguation)
	case models.StageReadyToConfirm:
		msg = summary(st) + " Confirm?"
		buttons = confirmButtons()
	}
	return Reply{Message: strings.TrimSpace(prefix + " " + msg), Buttons: buttons}, st, nil
}

func draftOf(st *models.ClarificationState) gate.Draft {
	return gate.Draft{Transaction: st.Transaction, Counterparty: st.Counterparty, Query: st.Query}
}
