package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-assistant/internal/common/config"
	"ledger-assistant/internal/common/logger"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (f *flakyPinger) Ping(context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestWaitReady(t *testing.T) {
	log := logger.NewTestLogger(t)

	p := &flakyPinger{failures: 2}
	require.NoError(t, WaitReady(context.Background(), "redis", p, 3, time.Millisecond, log))
	assert.Equal(t, 3, p.calls)

	p = &flakyPinger{failures: 5}
	err := WaitReady(context.Background(), "postgres", p, 2, time.Millisecond, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres not ready after 2 attempts")
	assert.Equal(t, 2, p.calls)
}

func TestWaitReady_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitReady(ctx, "es", &flakyPinger{failures: 10}, 5, time.Second, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRedis_Ping(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
}
