package runledgerquery

import (
	"time"

	"ledger-assistant/internal/common/config"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
}

func FromAppConfig(cfg *config.Config) *Config {
	c := &Config{Enabled: true, Timeout: 5 * time.Second}
	if cfg == nil {
		return c
	}
	w := config.GetWorkerConfig(cfg, TaskType)
	c.Enabled = w.Enabled
	if w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	return c
}
