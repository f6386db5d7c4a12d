package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "default", cfg.ContextName)
	assert.Equal(t, time.Minute, cfg.CycleInterval)
	assert.Equal(t, ":9180", cfg.MetricsAddr)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.InDelta(t, 2.0, cfg.Ensemble.Beta, 1e-9)
	assert.Equal(t, 15*time.Minute, cfg.Contest.BreakerCooldown)
	assert.InDelta(t, 0.05, cfg.Risk.MaxDrawdownPercent, 1e-9)
}

func TestLoadConfig_EnvOverridesWithPrefix(t *testing.T) {
	t.Setenv("TRADECORE_CONTEXT", "live")
	t.Setenv("TRADECORE_LOG_LEVEL", "debug")
	t.Setenv("TRADECORE_METRICS_ADDR", ":9999")
	t.Setenv("TRADECORE_BREAKER_MAX_FAILURES", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "live", cfg.ContextName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9999", cfg.MetricsAddr)
	assert.Equal(t, 5, cfg.Contest.BreakerMaxFailures)
}

func TestLoadConfig_MissingFileRejected(t *testing.T) {
	t.Setenv("TRADECORE_CONFIG", "/nonexistent/tradecore.yaml")
	_, err := LoadConfig()
	assert.Error(t, err)
}
