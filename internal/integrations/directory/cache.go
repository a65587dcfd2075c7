package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/models"
)

const snapshotKey = "assistant:directories"

// Loader produces a fresh directory snapshot.
type Loader interface {
	Load(ctx context.Context) (models.Directories, error)
}

// Cache keeps the last directory snapshot in Redis. Redis failures degrade to
// a direct load.
type Cache struct {
	rdb    *redis.Client
	loader Loader
	ttl    time.Duration
	logger logger.Logger
}

func NewCache(rdb *redis.Client, loader Loader, ttl time.Duration, log logger.Logger) *Cache {
	return &Cache{
		rdb:    rdb,
		loader: loader,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "directory-cache"}),
	}
}

func (c *Cache) Snapshot(ctx context.Context) (models.Directories, error) {
	raw, err := c.rdb.Get(ctx, snapshotKey).Bytes()
	switch {
	case err == nil:
		var dirs models.Directories
		if jsonErr := json.Unmarshal(raw, &dirs); jsonErr == nil {
			return dirs, nil
		}
		c.logger.Warn("Discarding unreadable directory snapshot", nil)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Directory cache read failed", map[string]interface{}{"error": err.Error()})
	}

	dirs, err := c.loader.Load(ctx)
	if err != nil {
		return models.Directories{}, err
	}

	if payload, err := json.Marshal(dirs); err == nil {
		if err := c.rdb.Set(ctx, snapshotKey, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("Directory cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return dirs, nil
}

// Invalidate drops the cached snapshot so the next turn sees new records.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, snapshotKey).Err()
}
