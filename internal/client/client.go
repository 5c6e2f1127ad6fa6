package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pkgkit/internal/bus"
	"pkgkit/internal/history"
	"pkgkit/internal/logging"
	"pkgkit/internal/polkit"
	"pkgkit/internal/transaction"
)

// Daemon hands out fresh transaction handles and accepts the daemon-level
// quit hint. New adapts *bus.Control to it.
type Daemon interface {
	Transaction(ctx context.Context) (transaction.Handle, error)
	SuggestDaemonQuit(ctx context.Context) error
}

// Authorizer reruns a policy-refused call after interactive authorization.
type Authorizer interface {
	WithRetry(ctx context.Context, fn func(context.Context) error) error
}

var _ Authorizer = (*polkit.Authorizer)(nil)

// Recorder journals finished mutating operations.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (int64, error)
}

var _ Recorder = (*history.Store)(nil)

type controlDaemon struct {
	control *bus.Control
}

func (d controlDaemon) Transaction(ctx context.Context) (transaction.Handle, error) {
	return d.control.Transaction(ctx)
}

func (d controlDaemon) SuggestDaemonQuit(ctx context.Context) error {
	return d.control.SuggestDaemonQuit(ctx)
}

// Client is the synchronous operation surface. One daemon transaction runs
// per method call; methods are safe for concurrent use.
type Client struct {
	daemon      Daemon
	authorizer  Authorizer
	recorder    Recorder
	logger      *slog.Logger
	cancelDelay time.Duration

	mu     sync.RWMutex
	locale string
}

// Option customizes Client construction.
type Option func(*Client)

// WithLogger attaches a logger to the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "client")
		}
	}
}

// WithAuthorizer wires the interactive authorization retry. Without it,
// policy refusals surface unmodified.
func WithAuthorizer(authorizer Authorizer) Option {
	return func(c *Client) { c.authorizer = authorizer }
}

// WithHistory journals every mutating operation to recorder. Journal
// failures are logged, never surfaced.
func WithHistory(recorder Recorder) Option {
	return func(c *Client) { c.recorder = recorder }
}

// WithCancelDelay overrides how long a progress-initiated cancel waits
// before the Cancel call goes out.
func WithCancelDelay(delay time.Duration) Option {
	return func(c *Client) {
		if delay >= 0 {
			c.cancelDelay = delay
		}
	}
}

// WithLocale seeds the locale forwarded on every transaction. SetLocale
// changes it later, with validation.
func WithLocale(code string) Option {
	return func(c *Client) { c.locale = code }
}

// WithDaemon replaces the daemon surface, primarily for tests. When set,
// the control passed to New may be nil.
func WithDaemon(daemon Daemon) Option {
	return func(c *Client) {
		if daemon != nil {
			c.daemon = daemon
		}
	}
}

// New builds a client over the system-bus control connection.
func New(control *bus.Control, opts ...Option) *Client {
	c := &Client{
		logger:      logging.NewNop(),
		cancelDelay: transaction.DefaultCancelDelay,
	}
	if control != nil {
		c.daemon = controlDaemon{control: control}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// operation describes one daemon call: the transaction method (which doubles
// as the journaled role) and its wire arguments in daemon order.
type operation struct {
	role       string
	args       []any
	progress   transaction.ProgressFunc
	packageIDs []string
	journal    bool
}

func (c *Client) query(ctx context.Context, role string, args ...any) (*transaction.Result, error) {
	return c.execute(ctx, operation{role: role, args: args})
}

func (c *Client) mutate(ctx context.Context, role string, progress transaction.ProgressFunc, packageIDs []string, args ...any) error {
	_, err := c.execute(ctx, operation{
		role:       role,
		args:       args,
		progress:   progress,
		packageIDs: packageIDs,
		journal:    true,
	})
	return err
}

func (c *Client) execute(ctx context.Context, op operation) (*transaction.Result, error) {
	requestID := uuid.NewString()
	logger := c.logger.With(
		logging.String(logging.FieldRequestID, requestID),
		logging.String(logging.FieldRole, op.role))

	started := time.Now()
	result, err := c.transact(ctx, logger, op)
	elapsed := time.Since(started)

	if err != nil {
		logger.Debug("operation failed", logging.Error(err), logging.Duration("elapsed", elapsed))
	} else {
		logger.Debug("operation finished", logging.Duration("elapsed", elapsed))
	}

	if op.journal && c.recorder != nil {
		c.journal(logger, history.Entry{
			RequestID:  requestID,
			Role:       op.role,
			PackageIDs: op.packageIDs,
			Succeeded:  err == nil,
			StartedAt:  started.UTC(),
			Duration:   elapsed,
		}, err)
	}
	return result, err
}

func (c *Client) transact(ctx context.Context, logger *slog.Logger, op operation) (*transaction.Result, error) {
	handle, err := c.daemon.Transaction(ctx)
	if err != nil {
		return nil, err
	}
	c.applyLocale(ctx, handle, logger)

	invoke := func(ctx context.Context) error {
		return handle.Call(ctx, op.role, op.args...)
	}
	if c.authorizer != nil {
		inner := invoke
		invoke = func(ctx context.Context) error {
			return c.authorizer.WithRetry(ctx, inner)
		}
	}

	runOpts := []transaction.RunOption{
		transaction.WithRunLogger(logger),
		transaction.WithCancelDelay(c.cancelDelay),
	}
	if op.progress != nil {
		runOpts = append(runOpts, transaction.WithProgress(op.progress))
	}
	return transaction.Run(ctx, handle, invoke, runOpts...)
}

// applyLocale forwards the remembered locale to a fresh transaction. Older
// daemons have no SetLocale member, so a refusal only logs.
func (c *Client) applyLocale(ctx context.Context, handle transaction.Handle, logger *slog.Logger) {
	locale := c.currentLocale()
	if locale == "" {
		return
	}
	if err := handle.Call(ctx, "SetLocale", locale); err != nil {
		logger.Debug("locale not honored", logging.Error(err))
	}
}

func (c *Client) journal(logger *slog.Logger, entry history.Entry, opErr error) {
	var daemonErr *transaction.Error
	switch {
	case errors.As(opErr, &daemonErr):
		entry.ErrorCode = daemonErr.Code
		entry.Detail = daemonErr.Details
	case opErr != nil:
		entry.Detail = opErr.Error()
	}

	// The operation context may already be dead; the journal write gets its
	// own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.recorder.Record(ctx, entry); err != nil {
		logger.Warn("history record failed", logging.Error(err))
	}
}

func (c *Client) currentLocale() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locale
}

func (c *Client) setLocale(code string) {
	c.mu.Lock()
	c.locale = code
	c.mu.Unlock()
}
