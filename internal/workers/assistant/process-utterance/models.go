package processutterance

import (
	"ledger-assistant/internal/assistant/clarify"
	"ledger-assistant/internal/models"
)

type Input struct {
	ConversationID string          `json:"conversationId"`
	Utterance      string          `json:"utterance"`
	Action         *clarify.Action `json:"action,omitempty"`
}

type Output struct {
	ConversationID string                `json:"conversationId"`
	Reply          string                `json:"reply"`
	Stage          models.Stage          `json:"stage"`
	Buttons        []models.ActionButton `json:"buttons"`
	Intent         *models.Intent        `json:"intent,omitempty"`
	Errors         []string              `json:"errors"`
	TileEnded      bool                  `json:"tileEnded"`
	TileLength     int                   `json:"tileLength"`
	QueryResult    interface{}           `json:"queryResult,omitempty"`
}
