package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTransaction(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTransaction() error {
	if c.Transaction.CancelDelayMS < 0 {
		return errors.New("transaction.cancel_delay_ms must not be negative")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.KeepEntries < 0 {
		return errors.New("history.keep_entries must not be negative")
	}
	if c.History.Enabled && c.History.Dir == "" {
		return errors.New("history.dir must be set when history.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
