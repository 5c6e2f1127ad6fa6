package config

const (
	defaultCancelDelayMS      = 10
	defaultSignalBuffer       = 256
	defaultAuthTimeoutSeconds = 300
	defaultHistoryDir         = "~/.local/share/pkgkit"
	defaultHistoryKeep        = 500
	defaultMediaSettleSeconds = 3
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Transaction: Transaction{
			CancelDelayMS: defaultCancelDelayMS,
			SignalBuffer:  defaultSignalBuffer,
		},
		Auth: Auth{
			Enabled:        true,
			TimeoutSeconds: defaultAuthTimeoutSeconds,
		},
		History: History{
			Enabled:     true,
			Dir:         defaultHistoryDir,
			KeepEntries: defaultHistoryKeep,
		},
		MediaWatch: MediaWatch{
			Enabled:       false,
			SettleSeconds: defaultMediaSettleSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
