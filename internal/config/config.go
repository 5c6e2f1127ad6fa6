package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Transaction contains tuning for the signal-driven transaction runner.
type Transaction struct {
	// CancelDelayMS is how long a progress-initiated cancel waits before the
	// Cancel call is issued, giving the backend time to finish setup.
	CancelDelayMS int `toml:"cancel_delay_ms" env:"CANCEL_DELAY_MS"`
	// SignalBuffer sizes the per-transaction signal channel. The bus drops
	// signals when the channel is full, so this stays generous.
	SignalBuffer int `toml:"signal_buffer" env:"SIGNAL_BUFFER"`
}

// Auth contains configuration for interactive privilege escalation.
type Auth struct {
	Enabled        bool `toml:"enabled" env:"ENABLED"`
	TimeoutSeconds int  `toml:"timeout_seconds" env:"TIMEOUT_SECONDS"`
}

// History contains configuration for the local transaction journal.
type History struct {
	Enabled     bool   `toml:"enabled" env:"ENABLED"`
	Dir         string `toml:"dir" env:"DIR"`
	KeepEntries int    `toml:"keep_entries" env:"KEEP_ENTRIES"`
}

// MediaWatch contains configuration for the removable-media refresh trigger.
type MediaWatch struct {
	Enabled bool `toml:"enabled" env:"ENABLED"`
	// Devices restricts watching to the named kernel devices (sr0, sdb, ...).
	// Empty means any optical or removable block device.
	Devices []string `toml:"devices" env:"DEVICES"`
	// SettleSeconds debounces bursts of uevents from one physical insertion.
	SettleSeconds int `toml:"settle_seconds" env:"SETTLE_SECONDS"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"FORMAT"`
	Level  string `toml:"level" env:"LEVEL"`
	File   string `toml:"file" env:"FILE"`
}

// Daemon contains client-side preferences forwarded to the package daemon.
type Daemon struct {
	// Locale is sent with SetLocale on new transactions when non-empty so the
	// daemon localizes package summaries and messages.
	Locale string `toml:"locale" env:"LOCALE"`
}

// Config encapsulates all configuration values for pkgkit.
type Config struct {
	Transaction Transaction `toml:"transaction" envPrefix:"PKGKIT_TRANSACTION_"`
	Auth        Auth        `toml:"auth" envPrefix:"PKGKIT_AUTH_"`
	History     History     `toml:"history" envPrefix:"PKGKIT_HISTORY_"`
	MediaWatch  MediaWatch  `toml:"media_watch" envPrefix:"PKGKIT_MEDIA_WATCH_"`
	Logging     Logging     `toml:"logging" envPrefix:"PKGKIT_LOGGING_"`
	Daemon      Daemon      `toml:"daemon" envPrefix:"PKGKIT_DAEMON_"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pkgkit/config.toml")
}

// Load locates, parses, and validates a configuration file, then overlays
// PKGKIT_* environment variables. The returned config has all path fields
// expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pkgkit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directories pkgkit writes to.
func (c *Config) EnsureDirectories() error {
	if c.History.Enabled && strings.TrimSpace(c.History.Dir) != "" {
		if err := os.MkdirAll(c.History.Dir, 0o755); err != nil {
			return fmt.Errorf("create history directory %q: %w", c.History.Dir, err)
		}
	}
	if c.Logging.File != "" {
		if dir := filepath.Dir(c.Logging.File); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create log directory %q: %w", dir, err)
			}
		}
	}
	return nil
}

// CancelDelay returns the progress-cancel delay as a duration.
func (c *Config) CancelDelay() time.Duration {
	return time.Duration(c.Transaction.CancelDelayMS) * time.Millisecond
}

// AuthTimeout returns the interactive authorization timeout as a duration.
func (c *Config) AuthTimeout() time.Duration {
	return time.Duration(c.Auth.TimeoutSeconds) * time.Second
}

// MediaSettle returns the media-watch debounce window as a duration.
func (c *Config) MediaSettle() time.Duration {
	return time.Duration(c.MediaWatch.SettleSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
