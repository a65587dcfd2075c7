package models

import "time"

type Stage string

const (
	StageIdle                   Stage = "idle"
	StageAwaitingField          Stage = "awaiting_field"
	StageAwaitingDisambiguation Stage = "awaiting_disambiguation"
	StageReadyToConfirm         Stage = "ready_to_confirm"
)

// Disambiguation is an open choice between candidates for one field.
// NotFound marks a counterparty lookup that matched nothing.
type Disambiguation struct {
	Field      Field             `json:"field"`
	Query      string            `json:"query"`
	Candidates []EntityCandidate `json:"candidates"`
	NotFound   bool              `json:"notFound,omitempty"`
}

// ClarificationState is the open question of one conversation. A nil state
// means the conversation is idle. Parent holds the suspended draft while a
// nested counterparty creation runs.
type ClarificationState struct {
	Stage          Stage               `json:"stage"`
	IntentKind     IntentKind          `json:"intentKind"`
	Transaction    *TransactionDraft   `json:"transaction,omitempty"`
	Counterparty   *CounterpartyDraft  `json:"counterparty,omitempty"`
	Query          *QueryDraft         `json:"query,omitempty"`
	AwaitingField  Field               `json:"awaitingField,omitempty"`
	Disambiguation *Disambiguation     `json:"disambiguation,omitempty"`
	Parent         *ClarificationState `json:"parent,omitempty"`
}

func (s *ClarificationState) Clone() *ClarificationState {
	if s == nil {
		return nil
	}
	c := *s
	c.Transaction = s.Transaction.Clone()
	c.Counterparty = s.Counterparty.Clone()
	c.Query = s.Query.Clone()
	if s.Disambiguation != nil {
		d := *s.Disambiguation
		d.Candidates = append([]EntityCandidate(nil), s.Disambiguation.Candidates...)
		c.Disambiguation = &d
	}
	c.Parent = s.Parent.Clone()
	return &c
}

func (s *ClarificationState) StageOrIdle() Stage {
	if s == nil {
		return StageIdle
	}
	return s.Stage
}

// MissingFields reports what the active draft still needs.
func (s *ClarificationState) MissingFields() []Field {
	switch {
	case s.Transaction != nil:
		return s.Transaction.MissingFields()
	case s.Counterparty != nil:
		return s.Counterparty.MissingFields()
	case s.Query != nil:
		return s.Query.MissingFields()
	}
	return []Field{}
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type ActionType string

const (
	ActionSelectCandidate ActionType = "select_candidate"
	ActionCreateNew       ActionType = "create_new"
	ActionConfirm         ActionType = "confirm"
	ActionCancel          ActionType = "cancel"
	ActionEdit            ActionType = "edit"
)

type ActionButton struct {
	Label       string     `json:"label"`
	Action      ActionType `json:"action"`
	CandidateID string     `json:"candidateId,omitempty"`
}

// Message is one transcript entry.
type Message struct {
	Role      Role                `json:"role"`
	Content   string              `json:"content"`
	Intent    *Intent             `json:"intent,omitempty"`
	State     *ClarificationState `json:"clarificationState,omitempty"`
	Buttons   []ActionButton      `json:"actionButtons,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

const tileBoundaryContent = "\x00tile-boundary\x00"

// TileBoundary returns the sentinel that separates conversation tiles.
func TileBoundary() Message {
	return Message{Role: RoleSystem, Content: tileBoundaryContent}
}

func (m Message) IsTileBoundary() bool {
	return m.Role == RoleSystem && m.Content == tileBoundaryContent
}

// CurrentTile returns the messages after the last tile boundary.
func CurrentTile(messages []Message) []Message {
	start := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].IsTileBoundary() {
			start = i + 1
			break
		}
	}
	out := make([]Message, 0, len(messages)-start)
	for _, m := range messages[start:] {
		if !m.IsTileBoundary() {
			out = append(out, m)
		}
	}
	return out
}
