package config

import "fmt"

// Validate performs runtime validations on the loaded configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database url must be specified")
	}
	if cfg.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive (got %s)", cfg.ProbeTimeout)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	return nil
}
