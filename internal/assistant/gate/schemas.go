package gate

import (
	"strings"

	"ledger-assistant/internal/common/validation"
	"ledger-assistant/internal/models"
)

const (
	labelCost         = "cost"
	labelSellingPrice = "selling price"
	labelAmount       = "amount"

	fieldType = "transactionType"
)

var nonBlank = map[string]interface{}{"type": "string", "pattern": `\S`}

func moneyProperty() map[string]interface{} {
	return map[string]interface{}{"type": "number", "minimum": 0.01}
}

var manualTypes = []string{
	string(models.TransactionPaymentMade),
	string(models.TransactionPaymentReceived),
	string(models.TransactionBankCharge),
	string(models.TransactionSalary),
	string(models.TransactionFee),
}

// tradeSchema covers purchases and orders; only the price label and the
// accepted type differ.
func tradeSchema(kind models.IntentKind) validation.Schema {
	label := priceLabel(kind)
	accepted := models.TransactionPurchase
	if kind == models.IntentOrder {
		accepted = models.TransactionOrder
	}
	return validation.Schema{
		"type": "object",
		"properties": map[string]interface{}{
			fieldType:      map[string]interface{}{"enum": []string{string(accepted)}},
			"event":        nonBlank,
			"quantity":     map[string]interface{}{"type": "integer", "minimum": 1},
			"area":         nonBlank,
			"counterparty": nonBlank,
			label:          moneyProperty(),
		},
		"required": []string{fieldType, "event", "quantity", "area", "counterparty", label},
	}
}

func manualSchema(d *models.TransactionDraft) validation.Schema {
	required := []string{fieldType}
	if d.CounterpartyRequired() {
		required = append(required, "counterparty")
	}
	required = append(required, labelAmount)
	if d.BankRequired() {
		required = append(required, "bank")
	}
	return validation.Schema{
		"type": "object",
		"properties": map[string]interface{}{
			fieldType:      map[string]interface{}{"enum": manualTypes},
			"counterparty": nonBlank,
			labelAmount:    moneyProperty(),
			"bank":         nonBlank,
			"mode":         map[string]interface{}{"enum": []string{string(models.ModeStandard), string(models.ModeCash)}},
			"direction":    map[string]interface{}{"enum": []string{string(models.DirectionIn), string(models.DirectionOut)}},
		},
		"required": required,
	}
}

var counterpartySchema = validation.Schema{
	"type": "object",
	"properties": map[string]interface{}{
		"name":  nonBlank,
		"phone": map[string]interface{}{"type": "string", "pattern": `^\+?[0-9]{7,}$`},
		"email": map[string]interface{}{"type": "string", "pattern": `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`},
	},
	"required": []string{"name", "phone"},
}

func priceLabel(kind models.IntentKind) string {
	switch kind {
	case models.IntentPurchase:
		return labelCost
	case models.IntentOrder:
		return labelSellingPrice
	}
	return labelAmount
}

// transactionDocument flattens a draft into the validated shape. Reference
// fields carry resolved ids, so a typed but unresolved name counts as absent.
func transactionDocument(d *models.TransactionDraft) map[string]interface{} {
	doc := map[string]interface{}{}
	if d.TransactionType != "" {
		doc[fieldType] = string(d.TransactionType)
	}
	putID(doc, "counterparty", d.CounterpartyID)
	if d.Amount != nil {
		doc[priceLabel(d.Kind())] = d.Amount.Round(2).InexactFloat64()
	}

	if d.Kind() == models.IntentManualTransaction {
		putID(doc, "bank", d.BankID)
		if d.Mode != "" {
			doc["mode"] = string(d.Mode)
		}
		if d.Direction != "" {
			doc["direction"] = string(d.Direction)
		}
		return doc
	}

	putID(doc, "event", d.EventID)
	if d.Quantity != 0 {
		doc["quantity"] = d.Quantity
	}
	if strings.TrimSpace(d.Area) != "" {
		doc["area"] = d.Area
	}
	return doc
}

func counterpartyDocument(d *models.CounterpartyDraft) map[string]interface{} {
	doc := map[string]interface{}{}
	if strings.TrimSpace(d.Name) != "" {
		doc["name"] = d.Name
	}
	if strings.TrimSpace(d.Phone) != "" {
		doc["phone"] = d.Phone
	}
	if strings.TrimSpace(d.Email) != "" {
		doc["email"] = d.Email
	}
	return doc
}

func putID(doc map[string]interface{}, key string, id *string) {
	if id != nil && strings.TrimSpace(*id) != "" {
		doc[key] = *id
	}
}
