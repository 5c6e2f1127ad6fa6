package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// applyEnv overlays PKGKIT_* environment variables onto cfg. Struct fields
// are mapped via their `env` and `envPrefix` tags, so variables win over both
// defaults and file values.
func applyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("apply environment overrides: %w", err)
	}
	return nil
}
