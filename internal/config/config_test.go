package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("QUEUE_BACKEND", "")
	t.Setenv("APP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, QueueBackendPostgres, cfg.Queue.Backend)
	assert.Equal(t, 3, cfg.Queue.DispatchRetries)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, "civic:notifications", cfg.Redis.NotifyChannel)
}

func TestLoadQueueBackend(t *testing.T) {
	t.Setenv("QUEUE_BACKEND", "Redis")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, QueueBackendRedis, cfg.Queue.Backend)

	t.Setenv("QUEUE_BACKEND", "kafka")
	_, err = Load()
	assert.Error(t, err)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("NOTIFY_DELIVERY_TIMEOUT_SECONDS", "soon")
	t.Setenv("REDIS_DB", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Notification.DeliveryTimeout())
}
