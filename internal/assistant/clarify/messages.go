package clarify

import (
	"fmt"
	"strings"

	"ledger-assistant/internal/models"
)

const (
	msgNotUnderstood = `I didn't understand that. Try something like "Bought from Benny 2 tickets Arsenal v Spurs Short Upper 100 each".`
	msgCancelled     = "Cancelled. Nothing was saved."
	msgNothingOpen   = "There's nothing in progress."
	msgStaleOption   = "That option is no longer available."
)

// question is the targeted follow-up for the first missing field.
func question(st *models.ClarificationState, field models.Field) string {
	switch field {
	case models.FieldCounterparty:
		switch {
		case st.Query != nil:
			return "Which counterparty should I check?"
		case st.Transaction == nil:
		case st.Transaction.TransactionType == models.TransactionPurchase:
			return "Who did you buy from?"
		case st.Transaction.TransactionType == models.TransactionOrder:
			return "Who did you sell to?"
		case st.Transaction.TransactionType == models.TransactionPaymentReceived:
			return "Who paid you?"
		}
		return "Who was this with?"
	case models.FieldQuantity:
		return "How many tickets?"
	case models.FieldEvent:
		if st.Query != nil {
			return "Which event should I report on?"
		}
		return "Which event is this for?"
	case models.FieldArea:
		return "Which area are the seats in?"
	case models.FieldAmount:
		if st.Transaction != nil {
			switch st.Transaction.TransactionType {
			case models.TransactionPurchase:
				return `What did they cost? Add "each" for a per-ticket price.`
			case models.TransactionOrder:
				return `What is the selling price? Add "each" for a per-ticket price.`
			}
		}
		return "What was the amount?"
	case models.FieldBank:
		return `Which bank or payment method? Reply "cash" for cash.`
	case models.FieldName:
		return "What is the counterparty's name?"
	case models.FieldPhone:
		if st.Counterparty != nil && st.Counterparty.Name != "" {
			return fmt.Sprintf("What is %s's phone number?", st.Counterparty.Name)
		}
		return "What is their phone number?"
	}
	return fmt.Sprintf("What is the %s?", field)
}

// retryHint prefixes a repeated question when a reply did not fit the field.
func retryHint(field models.Field) string {
	switch field {
	case models.FieldAmount:
		return "I need a number for the amount."
	case models.FieldQuantity:
		return "I need a whole number of tickets."
	case models.FieldPhone:
		return "I need a phone number with at least 7 digits."
	}
	return "I didn't catch that."
}

func disambiguationPrompt(d *models.Disambiguation) string {
	if d.NotFound {
		return fmt.Sprintf("I couldn't find a counterparty called %q. Create it?", d.Query)
	}
	var b strings.Builder
	switch d.Field {
	case models.FieldEvent:
		fmt.Fprintf(&b, "Which fixture did you mean by %q?", d.Query)
	case models.FieldBank:
		fmt.Fprintf(&b, "Which bank did you mean by %q?", d.Query)
	default:
		fmt.Fprintf(&b, "Which counterparty did you mean by %q?", d.Query)
	}
	for i, c := range d.Candidates {
		fmt.Fprintf(&b, "\n%d. %s", i+1, candidateLabel(c))
	}
	return b.String()
}

func candidateLabel(c models.EntityCandidate) string {
	label := c.DisplayName
	if c.Date != nil {
		label += ", " + c.Date.Format("Mon 02 Jan 15:04")
	}
	if c.Detail != "" {
		label += " (" + c.Detail + ")"
	}
	return label
}

func disambiguationButtons(d *models.Disambiguation) []models.ActionButton {
	if d.NotFound {
		return []models.ActionButton{
			{Label: fmt.Sprintf("Create %s", d.Query), Action: models.ActionCreateNew},
			{Label: "Cancel", Action: models.ActionCancel},
		}
	}
	buttons := make([]models.ActionButton, 0, len(d.Candidates)+1)
	for _, c := range d.Candidates {
		buttons = append(buttons, models.ActionButton{
			Label:       candidateLabel(c),
			Action:      models.ActionSelectCandidate,
			CandidateID: c.ID,
		})
	}
	if d.Field == models.FieldCounterparty {
		buttons = append(buttons, models.ActionButton{Label: "Create new counterparty", Action: models.ActionCreateNew})
	}
	return buttons
}

func confirmButtons() []models.ActionButton {
	return []models.ActionButton{
		{Label: "Confirm", Action: models.ActionConfirm},
		{Label: "Edit", Action: models.ActionEdit},
		{Label: "Cancel", Action: models.ActionCancel},
	}
}

func editButtons() []models.ActionButton {
	return []models.ActionButton{
		{Label: "Edit", Action: models.ActionEdit},
		{Label: "Cancel", Action: models.ActionCancel},
	}
}

// summary renders the draft awaiting confirmation.
func summary(st *models.ClarificationState) string {
	switch {
	case st.Transaction != nil:
		return transactionSummary(st.Transaction)
	case st.Counterparty != nil:
		c := st.Counterparty
		s := fmt.Sprintf("New %s %s, phone %s", c.Role, c.Name, c.Phone)
		if c.Email != "" {
			s += ", email " + c.Email
		}
		return s + "."
	}
	return ""
}

func transactionSummary(d *models.TransactionDraft) string {
	price := ""
	if d.Amount != nil {
		price = d.Amount.StringFixed(2)
		if d.PerUnit {
			price = fmt.Sprintf("%s each (total %s)", price, d.Total().StringFixed(2))
		}
	}

	switch d.Kind() {
	case models.IntentPurchase, models.IntentOrder:
		verb := "Purchase from"
		if d.Kind() == models.IntentOrder {
			verb = "Sale to"
		}
		event := d.EventName
		if event == "" {
			event = d.EventQuery
		}
		if d.EventDate != nil {
			event += " on " + d.EventDate.Format("Mon 02 Jan 2006")
		}
		parts := []string{fmt.Sprintf("%d x %s", d.Quantity, event), d.Area}
		if seats := seatText(d); seats != "" {
			parts = append(parts, seats)
		}
		parts = append(parts, price)
		return fmt.Sprintf("%s %s: %s.", verb, d.CounterpartyName, strings.Join(parts, ", "))
	}

	s := fmt.Sprintf("%s %s", strings.ReplaceAll(string(d.TransactionType), "_", " "), price)
	if d.CounterpartyName != "" {
		s += " with " + d.CounterpartyName
	}
	if d.Mode == models.ModeCash {
		s += " in cash"
	} else if d.BankName != "" {
		s += " via " + d.BankName
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func seatText(d *models.TransactionDraft) string {
	var parts []string
	if d.Block != "" {
		parts = append(parts, "block "+d.Block)
	}
	if d.Row != "" {
		parts = append(parts, "row "+d.Row)
	}
	if d.Seats != "" {
		parts = append(parts, "seats "+d.Seats)
	}
	return strings.Join(parts, " ")
}
