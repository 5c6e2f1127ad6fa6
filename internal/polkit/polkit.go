package polkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"pkgkit/internal/bus"
	"pkgkit/internal/logging"
)

// The authentication agent lives on the session bus.
const (
	agentBusName             = "org.freedesktop.PolicyKit.AuthenticationAgent"
	agentPath dbus.ObjectPath = "/"
	agentInterface           = "org.gnome.PolicyKit.AuthorizationManager.SingleInstance"

	methodObtainAuthorization = agentInterface + ".ObtainAuthorization"
)

// DeniedError reports that an operation required an authorization the user
// does not hold and could not (or did not) acquire interactively.
type DeniedError struct {
	// Action is the PolicyKit action id the daemon demanded,
	// e.g. "org.freedesktop.packagekit.install".
	Action string
	// Result is the daemon's authorization verdict, e.g. "auth_admin" or "no".
	Result string
}

func (e *DeniedError) Error() string {
	if e.Action == "" {
		return "authorization denied by policy"
	}
	return fmt.Sprintf("authorization denied by policy: %s (%s)", e.Action, e.Result)
}

// Authorizer obtains interactive authorizations through the session agent.
// The agent proxy is established lazily on the first refusal.
type Authorizer struct {
	mu      sync.Mutex
	agent   bus.Object
	connect func() (bus.Object, error)
	timeout time.Duration
	logger  *slog.Logger
}

// Option customizes Authorizer construction.
type Option func(*Authorizer)

// WithAgent replaces the session-bus agent connector, primarily for tests.
func WithAgent(connect func() (bus.Object, error)) Option {
	return func(a *Authorizer) {
		if connect != nil {
			a.connect = connect
		}
	}
}

// WithTimeout bounds how long the user gets to complete the authentication
// dialog.
func WithTimeout(timeout time.Duration) Option {
	return func(a *Authorizer) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// WithLogger attaches a logger to the authorizer.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authorizer) {
		if logger != nil {
			a.logger = logging.NewComponentLogger(logger, "polkit")
		}
	}
}

// New creates an Authorizer.
func New(opts ...Option) *Authorizer {
	a := &Authorizer{
		connect: sessionAgent,
		timeout: 300 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func sessionAgent() (bus.Object, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return conn.Object(agentBusName, agentPath), nil
}

// WithRetry runs fn. When the daemon refuses it by policy and the refusal
// names an interactively grantable authorization, the agent is asked to
// obtain it and fn is retried exactly once; the retry's outcome is returned
// as-is. Refusals that cannot be granted interactively become *DeniedError.
// Every other failure passes through unmodified.
func (a *Authorizer) WithRetry(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || !bus.IsDBusError(err, bus.ErrNameRefusedByPolicy) {
		return err
	}

	action, result, ok := parseRefusal(refusalMessage(err))
	if !ok || !strings.HasPrefix(result, "auth_") {
		return &DeniedError{Action: action, Result: result}
	}

	a.logger.Debug("operation refused by policy, asking agent",
		logging.String("action", action),
		logging.String("auth_result", result))

	granted, err := a.obtain(ctx, action)
	if err != nil {
		return fmt.Errorf("obtain authorization for %s: %w", action, err)
	}
	if !granted {
		return &DeniedError{Action: action, Result: result}
	}

	a.logger.Debug("authorization granted, retrying", logging.String("action", action))
	return fn(ctx)
}

func (a *Authorizer) obtain(ctx context.Context, action string) (bool, error) {
	agent, err := a.agentObject()
	if err != nil {
		return false, err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var granted bool
	call := agent.CallWithContext(ctx, methodObtainAuthorization, 0,
		action, uint32(0), uint32(os.Getpid()))
	if err := call.Store(&granted); err != nil {
		return false, err
	}
	return granted, nil
}

func (a *Authorizer) agentObject() (bus.Object, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.agent != nil {
		return a.agent, nil
	}
	agent, err := a.connect()
	if err != nil {
		return nil, err
	}
	a.agent = agent
	return agent, nil
}

// refusalMessage pulls the human-readable text out of a policy refusal.
func refusalMessage(err error) string {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && len(dbusErr.Body) > 0 {
		if text, ok := dbusErr.Body[0].(string); ok {
			return text
		}
	}
	return err.Error()
}

// parseRefusal extracts the action id and authorization result from a policy
// refusal message. The daemon appends them as the message's last two words,
// e.g. "... requires org.freedesktop.packagekit.install auth_admin_keep_always".
// There is no structured payload on the wire to prefer.
func parseRefusal(message string) (action, result string, ok bool) {
	fields := strings.Fields(message)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[len(fields)-2], fields[len(fields)-1], true
}
