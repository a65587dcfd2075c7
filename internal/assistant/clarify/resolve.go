package clarify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ledger-assistant/internal/assistant/normalize"
	"ledger-assistant/internal/assistant/resolver"
	"ledger-assistant/internal/models"
)

// resolveReferences fills ids for typed names. It returns an open
// disambiguation when the operator has to choose, or nil when every
// reference is settled or has been cleared for re-asking.
func (m *Machine) resolveReferences(ctx context.Context, t *turn, st *models.ClarificationState) (*models.Disambiguation, error) {
	switch {
	case st.Transaction != nil:
		return m.resolveTransaction(ctx, t, st.Transaction)
	case st.Query != nil && st.Query.QueryType == models.QueryBalance:
		return resolveBalanceTarget(t, st.Query), nil
	}
	return nil, nil
}

func (m *Machine) resolveTransaction(ctx context.Context, t *turn, d *models.TransactionDraft) (*models.Disambiguation, error) {
	if strings.TrimSpace(d.CounterpartyName) != "" && d.CounterpartyID == nil {
		match := resolver.ResolveEntity(d.CounterpartyName, t.dirs.Vendors)
		switch match.Outcome {
		case resolver.OutcomeResolved:
			c, _ := match.Resolved()
			d.CounterpartyID = models.StringPtr(c.ID)
			d.CounterpartyName = c.DisplayName
		case resolver.OutcomeAmbiguous:
			return &models.Disambiguation{Field: models.FieldCounterparty, Query: match.Query, Candidates: match.Candidates}, nil
		default:
			if d.CounterpartyRequired() {
				return &models.Disambiguation{Field: models.FieldCounterparty, Query: match.Query, NotFound: true, Candidates: []models.EntityCandidate{}}, nil
			}
		}
	}

	if d.Kind() != models.IntentManualTransaction && strings.TrimSpace(d.EventQuery) != "" && d.EventID == nil {
		fixtures, err := m.fixtures.Resolve(ctx, t.convID+":event", d.EventQuery)
		if err != nil {
			return nil, err
		}
		switch {
		case len(fixtures) == 0:
			t.notes = append(t.notes, fmt.Sprintf("I couldn't find an upcoming fixture matching %q.", d.EventQuery))
			d.EventQuery = ""
		case len(fixtures) == 1 || m.autoSelect:
			applyEvent(d, resolver.ToCandidates(fixtures[:1])[0])
		default:
			return &models.Disambiguation{Field: models.FieldEvent, Query: d.EventQuery, Candidates: resolver.ToCandidates(fixtures)}, nil
		}
	}

	if strings.TrimSpace(d.BankName) != "" && d.BankID == nil {
		match := resolver.ResolveEntity(d.BankName, t.dirs.Banks)
		switch match.Outcome {
		case resolver.OutcomeResolved:
			c, _ := match.Resolved()
			d.BankID = models.StringPtr(c.ID)
			d.BankName = c.DisplayName
		case resolver.OutcomeAmbiguous:
			return &models.Disambiguation{Field: models.FieldBank, Query: match.Query, Candidates: match.Candidates}, nil
		default:
			t.notes = append(t.notes, fmt.Sprintf("I couldn't find a bank called %q.", d.BankName))
			d.BankName = ""
		}
	}
	return nil, nil
}

// resolveBalanceTarget canonicalises the vendor name. Unknown names go to the
// backend as typed so its not-found answer reaches the operator.
func resolveBalanceTarget(t *turn, q *models.QueryDraft) *models.Disambiguation {
	if strings.TrimSpace(q.CounterpartyName) == "" || q.CounterpartyID != nil {
		return nil
	}
	match := resolver.ResolveEntity(q.CounterpartyName, t.dirs.Vendors)
	switch match.Outcome {
	case resolver.OutcomeResolved:
		c, _ := match.Resolved()
		q.CounterpartyID = models.StringPtr(c.ID)
		q.CounterpartyName = c.DisplayName
	case resolver.OutcomeAmbiguous:
		return &models.Disambiguation{Field: models.FieldCounterparty, Query: match.Query, Candidates: match.Candidates}
	}
	return nil
}

func applyEvent(d *models.TransactionDraft, c models.EntityCandidate) {
	d.EventID = models.StringPtr(c.ID)
	d.EventName = c.DisplayName
	if c.Date != nil {
		date := *c.Date
		d.EventDate = &date
	}
}

func (m *Machine) selectCandidate(ctx context.Context, t *turn, st *models.ClarificationState, c models.EntityCandidate) (Reply, *models.ClarificationState, error) {
	field := st.Disambiguation.Field
	switch {
	case st.Transaction != nil && field == models.FieldCounterparty:
		st.Transaction.CounterpartyID = models.StringPtr(c.ID)
		st.Transaction.CounterpartyName = c.DisplayName
	case st.Transaction != nil && field == models.FieldEvent:
		applyEvent(st.Transaction, c)
	case st.Transaction != nil && field == models.FieldBank:
		st.Transaction.BankID = models.StringPtr(c.ID)
		st.Transaction.BankName = c.DisplayName
	case st.Query != nil:
		st.Query.CounterpartyID = models.StringPtr(c.ID)
		st.Query.CounterpartyName = c.DisplayName
	}
	m.logger.Info("Candidate selected", map[string]interface{}{
		"conversationId": t.convID,
		"field":          string(field),
		"candidateId":    c.ID,
	})
	return m.advance(ctx, t, st)
}

// answerDisambiguation accepts a list number, a candidate name, a yes for a
// not-found counterparty, or otherwise a corrected spelling.
func (m *Machine) answerDisambiguation(ctx context.Context, t *turn, st *models.ClarificationState, text string) (Reply, *models.ClarificationState, error) {
	dis := st.Disambiguation
	if dis == nil {
		return m.advance(ctx, t, st)
	}
	if text == "" {
		return m.reprompt(st, "")
	}

	if dis.NotFound {
		if isYes(text) || isCreate(text) {
			return m.startCreate(ctx, t, st)
		}
		if isNo(text) {
			return m.cancel(st)
		}
	}

	if n, err := strconv.Atoi(strings.TrimSuffix(text, ".")); err == nil && !dis.NotFound {
		if n >= 1 && n <= len(dis.Candidates) {
			return m.selectCandidate(ctx, t, st, dis.Candidates[n-1])
		}
		return m.reprompt(st, fmt.Sprintf("Pick a number between 1 and %d.", len(dis.Candidates)))
	}

	folded := strings.ToLower(strings.Join(strings.Fields(text), " "))
	for _, c := range dis.Candidates {
		if strings.ToLower(c.DisplayName) == folded {
			return m.selectCandidate(ctx, t, st, c)
		}
	}

	respell(st, dis.Field, text)
	return m.advance(ctx, t, st)
}

// respell replaces the disputed name with the operator's correction.
func respell(st *models.ClarificationState, field models.Field, text string) {
	switch {
	case st.Transaction != nil && field == models.FieldCounterparty:
		st.Transaction.CounterpartyName = text
		st.Transaction.CounterpartyID = nil
	case st.Transaction != nil && field == models.FieldEvent:
		st.Transaction.EventQuery = normalize.Normalize(text).Normalized
		st.Transaction.EventID = nil
	case st.Transaction != nil && field == models.FieldBank:
		st.Transaction.BankName = text
		st.Transaction.BankID = nil
	case st.Query != nil:
		st.Query.CounterpartyName = text
		st.Query.CounterpartyID = nil
	}
}

// startCreate suspends the current draft and opens a counterparty creation
// seeded with the disputed name.
func (m *Machine) startCreate(ctx context.Context, t *turn, st *models.ClarificationState) (Reply, *models.ClarificationState, error) {
	name := st.Disambiguation.Query
	parent := st.Clone()
	parent.Stage = models.StageIdle
	parent.Disambiguation = nil

	child := &models.ClarificationState{
		Stage:        models.StageIdle,
		IntentKind:   models.IntentCreateCounterparty,
		Counterparty: &models.CounterpartyDraft{Name: name, Role: models.DefaultCounterpartyRole},
		Parent:       parent,
	}
	m.logger.Info("Nested counterparty creation started", map[string]interface{}{
		"conversationId": t.convID,
		"name":           name,
	})
	return m.advance(ctx, t, child)
}
