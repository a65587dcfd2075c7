package clarify

import (
	"context"
	"strings"

	"ledger-assistant/internal/assistant/classifier"
	"ledger-assistant/internal/assistant/normalize"
	"ledger-assistant/internal/models"
)

var (
	cancelPhrases = map[string]bool{"cancel": true, "never mind": true, "nevermind": true, "stop": true, "forget it": true, "abort": true}
	yesWords      = map[string]bool{"yes": true, "y": true, "yep": true, "yeah": true, "confirm": true, "ok": true, "okay": true, "sure": true, "go ahead": true, "do it": true}
	noWords       = map[string]bool{"no": true, "n": true, "nope": true}
	createWords   = map[string]bool{"create": true, "create it": true, "create new": true, "add": true, "add it": true, "new": true}
)

func phrase(text string) string {
	return normalize.Normalize(text).Normalized
}

func isCancel(text string) bool { return cancelPhrases[phrase(text)] }
func isYes(text string) bool    { return yesWords[phrase(text)] }
func isNo(text string) bool     { return noWords[phrase(text)] }
func isCreate(text string) bool { return createWords[phrase(text)] }

// fillField reads text only as the value of the awaited field. A reply that
// does not fit repeats the question and leaves the draft as it was.
func (m *Machine) fillField(ctx context.Context, t *turn, st *models.ClarificationState, text string) (Reply, *models.ClarificationState, error) {
	field := st.AwaitingField
	if !applyField(st, field, text) {
		return m.reprompt(st, retryHint(field))
	}
	m.logger.Debug("Field filled", map[string]interface{}{
		"conversationId": t.convID,
		"field":          string(field),
	})
	return m.advance(ctx, t, st)
}

func applyField(st *models.ClarificationState, field models.Field, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	switch {
	case st.Transaction != nil:
		return applyTransactionField(st.Transaction, field, text)
	case st.Counterparty != nil:
		return applyCounterpartyField(st.Counterparty, field, text)
	case st.Query != nil:
		switch field {
		case models.FieldEvent:
			st.Query.EventName = phrase(text)
			return st.Query.EventName != ""
		case models.FieldCounterparty:
			st.Query.CounterpartyName = text
			st.Query.CounterpartyID = nil
			return true
		}
	}
	return false
}

func applyTransactionField(d *models.TransactionDraft, field models.Field, text string) bool {
	switch field {
	case models.FieldAmount:
		a, ok := classifier.ParseAmount(text)
		if !ok {
			return false
		}
		v := a.Value
		d.Amount = &v
		d.PerUnit = a.PerUnit
	case models.FieldQuantity:
		n, ok := classifier.ParseQuantity(text)
		if !ok {
			return false
		}
		d.Quantity = n
	case models.FieldEvent:
		d.EventQuery = phrase(text)
		d.EventID = nil
		d.EventName = ""
		d.EventDate = nil
		return d.EventQuery != ""
	case models.FieldArea:
		d.Area = classifier.ParseArea(text)
	case models.FieldCounterparty:
		d.CounterpartyName = text
		d.CounterpartyID = nil
	case models.FieldBank:
		if phrase(text) == "cash" {
			d.Mode = models.ModeCash
			d.BankName = ""
			d.BankID = nil
			return true
		}
		d.Mode = models.ModeStandard
		d.BankName = text
		d.BankID = nil
	default:
		return false
	}
	return true
}

func applyCounterpartyField(d *models.CounterpartyDraft, field models.Field, text string) bool {
	switch field {
	case models.FieldName:
		d.Name = text
	case models.FieldPhone:
		p, ok := classifier.ParsePhone(text)
		if !ok {
			return false
		}
		d.Phone = p
	default:
		return false
	}
	return true
}
