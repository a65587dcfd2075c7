// internal/workers/assistant/classify-utterance/models.go
package classifyutterance

import "ledger-assistant/internal/models"

type Input struct {
	Utterance string `json:"utterance"`
}

type Output struct {
	Intent        models.Intent  `json:"intent"`
	Normalized    string         `json:"normalized"`
	MissingFields []models.Field `json:"missingFields"`
	Actionable    bool           `json:"actionable"`
}
