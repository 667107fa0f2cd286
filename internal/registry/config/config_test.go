package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masumi-network/registry-service/internal/registry/config"
)

func TestLoad_DefaultsApplied(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/registry")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.ServerAddress)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 10*time.Minute, cfg.DeregisterInterval)
	assert.Equal(t, 15*time.Minute, cfg.HealthSweepInterval)
	assert.Equal(t, 10*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/registry")
	t.Setenv("SERVER_ADDRESS", ":8080")
	t.Setenv("SYNC_INTERVAL", "30s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			DatabaseURL:  "postgres://localhost/registry",
			ProbeTimeout: time.Second,
			LogLevel:     "info",
		}
	}

	assert.NoError(t, config.Validate(valid()))
	assert.Error(t, config.Validate(nil))

	cfg := valid()
	cfg.DatabaseURL = ""
	assert.Error(t, config.Validate(cfg))

	cfg = valid()
	cfg.ProbeTimeout = 0
	assert.Error(t, config.Validate(cfg))

	cfg = valid()
	cfg.LogLevel = "verbose"
	assert.Error(t, config.Validate(cfg))
}
