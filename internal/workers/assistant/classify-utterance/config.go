// internal/workers/assistant/classify-utterance/config.go
package classifyutterance

import (
	"time"

	"ledger-assistant/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func FromAppConfig(cfg *config.Config) *Config {
	c := &Config{Timeout: 5 * time.Second}
	if cfg == nil {
		return c
	}
	if w := config.GetWorkerConfig(cfg, TaskType); w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	return c
}
