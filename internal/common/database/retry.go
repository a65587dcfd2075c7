package database

import (
	"context"
	"fmt"
	"time"

	"ledger-assistant/internal/common/logger"
)

// Pinger is any backing store that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitReady pings p until it answers or attempts run out, doubling the delay
// between tries.
func WaitReady(ctx context.Context, name string, p Pinger, attempts int, delay time.Duration, log logger.Logger) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = p.Ping(ctx); err == nil {
			log.Info("Backing store ready", map[string]interface{}{"store": name, "attempt": i})
			return nil
		}
		log.Warn("Backing store not ready", map[string]interface{}{
			"store":   name,
			"attempt": i,
			"error":   err.Error(),
		})
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%s not ready after %d attempts: %w", name, attempts, err)
}
