package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"pkgkit/internal/bus"
	"pkgkit/internal/client"
	"pkgkit/internal/config"
	"pkgkit/internal/history"
	"pkgkit/internal/logging"
	"pkgkit/internal/polkit"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// newClient builds the client stack for one invocation. Tests swap it
	// for a factory returning a client backed by a fake daemon.
	newClient func(cfg *config.Config) (*client.Client, func(), error)
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		newClient:  buildClient,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withClient builds the client stack for one command invocation, runs fn,
// and tears the stack down again.
func (c *commandContext) withClient(fn func(*client.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	cl, cleanup, err := c.newClient(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := fn(cl); err != nil {
		return wrapDaemonError(err)
	}
	return nil
}

// withLockedClient is withClient behind the operation lock. Mutating commands
// take it so two pkgkit invocations cannot interleave transactions.
func (c *commandContext) withLockedClient(fn func(*client.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	release, err := acquireOperationLock(cfg)
	if err != nil {
		return err
	}
	defer release()
	return c.withClient(fn)
}

// withHistory opens the local journal without the rest of the client stack.
func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("history is disabled; enable it in the [history] config section")
	}
	store, err := history.Open(cfg.History.Dir)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func buildClient(cfg *config.Config) (*client.Client, func(), error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	control := bus.NewControl(
		bus.WithLogger(logger),
		bus.WithSignalBuffer(cfg.Transaction.SignalBuffer),
	)

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithCancelDelay(cfg.CancelDelay()),
		client.WithLocale(cfg.Daemon.Locale),
	}

	if cfg.Auth.Enabled {
		opts = append(opts, client.WithAuthorizer(polkit.New(
			polkit.WithTimeout(cfg.AuthTimeout()),
			polkit.WithLogger(logger),
		)))
	}

	cleanup := func() {}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open history: %w", err)
		}
		opts = append(opts, client.WithHistory(store))
		cleanup = func() {
			pruneHistory(store, cfg.History.KeepEntries, logger)
			_ = store.Close()
		}
	}

	return client.New(control, opts...), cleanup, nil
}

// newLogger directs log output at stderr so tables and package listings own
// stdout.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	outputs := []string{"stderr"}
	if cfg.Logging.File != "" {
		outputs = append(outputs, cfg.Logging.File)
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

func pruneHistory(store *history.Store, keep int, logger *slog.Logger) {
	if keep <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := store.Prune(ctx, keep); err != nil {
		logger.Debug("history prune failed", logging.Error(err))
	}
}

// wrapDaemonError turns low-level failures into actionable messages.
func wrapDaemonError(err error) error {
	var denied *polkit.DeniedError
	switch {
	case errors.Is(err, bus.ErrDaemonUnreachable):
		return fmt.Errorf("%w; check that PackageKit is installed and the system bus is running", err)
	case errors.As(err, &denied):
		return fmt.Errorf("%w; you are not authorized for this operation", err)
	default:
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
