package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ledger-assistant/internal/models"
)

var (
	ErrStateStoreFailed      = errors.New("STATE_STORE_FAILED")
	ErrTranscriptStoreFailed = errors.New("TRANSCRIPT_STORE_FAILED")
)

func stateKey(convID string) string {
	return "assistant:state:" + convID
}

// StateStore keeps one clarification state per conversation.
type StateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStateStore(rdb *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{rdb: rdb, ttl: ttl}
}

// Get returns nil when the conversation is idle.
func (s *StateStore) Get(ctx context.Context, convID string) (*models.ClarificationState, error) {
	raw, err := s.rdb.Get(ctx, stateKey(convID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", ErrStateStoreFailed, err)
	}

	var st models.ClarificationState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrStateStoreFailed, err)
	}
	return &st, nil
}

// Save stores st, or clears the key when st is nil.
func (s *StateStore) Save(ctx context.Context, convID string, st *models.ClarificationState) error {
	if st == nil {
		return s.Clear(ctx, convID)
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStateStoreFailed, err)
	}
	if err := s.rdb.Set(ctx, stateKey(convID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %v", ErrStateStoreFailed, err)
	}
	return nil
}

func (s *StateStore) Clear(ctx context.Context, convID string) error {
	if err := s.rdb.Del(ctx, stateKey(convID)).Err(); err != nil {
		return fmt.Errorf("%w: del: %v", ErrStateStoreFailed, err)
	}
	return nil
}
