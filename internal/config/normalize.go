package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeTransaction()
	c.normalizeMediaWatch()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	c.normalizeDaemon()
	return nil
}

func (c *Config) normalizeTransaction() {
	if c.Transaction.SignalBuffer <= 0 {
		c.Transaction.SignalBuffer = defaultSignalBuffer
	}
	if c.Auth.TimeoutSeconds <= 0 {
		c.Auth.TimeoutSeconds = defaultAuthTimeoutSeconds
	}
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Dir) == "" {
		c.History.Dir = defaultHistoryDir
	}
	var err error
	if c.History.Dir, err = expandPath(c.History.Dir); err != nil {
		return fmt.Errorf("history.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMediaWatch() {
	devices := c.MediaWatch.Devices[:0]
	for _, device := range c.MediaWatch.Devices {
		trimmed := strings.TrimPrefix(strings.TrimSpace(device), "/dev/")
		if trimmed != "" {
			devices = append(devices, trimmed)
		}
	}
	c.MediaWatch.Devices = devices
	if c.MediaWatch.SettleSeconds <= 0 {
		c.MediaWatch.SettleSeconds = defaultMediaSettleSeconds
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	} else {
		c.Logging.File = ""
	}
	return nil
}

func (c *Config) normalizeDaemon() {
	c.Daemon.Locale = strings.TrimSpace(c.Daemon.Locale)
	if c.Daemon.Locale == "" {
		for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
			if value := strings.TrimSpace(os.Getenv(key)); value != "" && value != "C" && value != "POSIX" {
				c.Daemon.Locale = value
				break
			}
		}
	}
}
