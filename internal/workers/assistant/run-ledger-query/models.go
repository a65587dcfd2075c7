// internal/workers/assistant/run-ledger-query/models.go
package runledgerquery

import "ledger-assistant/internal/models"

type Input struct {
	QueryType        string `json:"queryType"`
	EventName        string `json:"eventName,omitempty"`
	CounterpartyName string `json:"counterpartyName,omitempty"`
}

type Output struct {
	QueryType          models.QueryType `json:"queryType"`
	Found              bool             `json:"found"`
	Data               interface{}      `json:"data,omitempty"`
	Message            string           `json:"message"`
	QueryExecutionTime int64            `json:"queryExecutionTime"` // milliseconds
}
