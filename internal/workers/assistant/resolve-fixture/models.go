package resolvefixture

import "ledger-assistant/internal/models"

// Input asks for upcoming fixtures matching a free-text event phrase.
// ConversationID, when set, scopes supersession so a newer lookup for the
// same conversation cancels an older one.
type Input struct {
	ConversationID string `json:"conversationId,omitempty"`
	Phrase         string `json:"phrase"`
	AutoSelect     bool   `json:"autoSelect"`
}

type Output struct {
	Candidates []models.EntityCandidate `json:"candidates"`
	Selected   *models.EntityCandidate  `json:"selected,omitempty"`
}
