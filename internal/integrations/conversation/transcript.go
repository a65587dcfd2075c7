package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ledger-assistant/internal/models"
)

func transcriptKey(convID string) string {
	return "assistant:transcript:" + convID
}

// TranscriptStore appends messages to a capped Redis list.
type TranscriptStore struct {
	rdb   *redis.Client
	limit int64
	ttl   time.Duration
	now   func() time.Time
}

func NewTranscriptStore(rdb *redis.Client, limit int, ttl time.Duration) *TranscriptStore {
	return &TranscriptStore{rdb: rdb, limit: int64(limit), ttl: ttl, now: time.Now}
}

func (s *TranscriptStore) Append(ctx context.Context, convID string, msgs ...models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = s.now().UTC()
		}
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("%w: encode: %v", ErrTranscriptStoreFailed, err)
		}
		values = append(values, payload)
	}

	key := transcriptKey(convID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if s.limit > 0 {
		pipe.LTrim(ctx, key, -s.limit, -1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: append: %v", ErrTranscriptStoreFailed, err)
	}
	return nil
}

// AppendBoundary closes the current tile.
func (s *TranscriptStore) AppendBoundary(ctx context.Context, convID string) error {
	return s.Append(ctx, convID, models.TileBoundary())
}

func (s *TranscriptStore) History(ctx context.Context, convID string) ([]models.Message, error) {
	raw, err := s.rdb.LRange(ctx, transcriptKey(convID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: range: %v", ErrTranscriptStoreFailed, err)
	}
	msgs := make([]models.Message, 0, len(raw))
	for _, r := range raw {
		var m models.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("%w: decode: %v", ErrTranscriptStoreFailed, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Tile returns the messages since the last tile boundary.
func (s *TranscriptStore) Tile(ctx context.Context, convID string) ([]models.Message, error) {
	msgs, err := s.History(ctx, convID)
	if err != nil {
		return nil, err
	}
	return models.CurrentTile(msgs), nil
}
