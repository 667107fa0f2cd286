// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the full service configuration.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":3000"`

	// Intervals for the scheduled passes. Zero disables a schedule.
	SyncInterval        time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`
	DeregisterInterval  time.Duration `env:"DEREGISTER_INTERVAL" envDefault:"10m"`
	HealthSweepInterval time.Duration `env:"HEALTH_SWEEP_INTERVAL" envDefault:"15m"`

	// ProbeTimeout bounds each agent availability probe.
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT" envDefault:"10s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from an optional .env file and the process
// environment.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
