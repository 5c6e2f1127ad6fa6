package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"pkgkit/internal/logging"
)

// ErrDaemonUnreachable indicates the PackageKit daemon could not be reached
// on the system bus, even after re-establishing the control object.
var ErrDaemonUnreachable = errors.New("packagekit daemon unreachable")

// Object is the slice of dbus.BusObject the client uses.
type Object interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Connection is the slice of *dbus.Conn the client uses. Signal channels
// registered here observe every matched signal on the connection, so readers
// filter by object path.
type Connection interface {
	Object(dest string, path dbus.ObjectPath) Object
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

type systemConn struct {
	*dbus.Conn
}

func (s systemConn) Object(dest string, path dbus.ObjectPath) Object {
	return s.Conn.Object(dest, path)
}

func systemBusConnector() (Connection, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	return systemConn{conn}, nil
}

// Control allocates daemon transactions. The control object is established
// lazily on first use and re-established once per allocation when the daemon
// has dropped off the bus, matching the daemon's habit of exiting when idle.
type Control struct {
	mu      sync.Mutex
	conn    Connection
	obj     Object
	connect func() (Connection, error)
	logger  *slog.Logger
	buffer  int
}

// ControlOption customizes Control construction.
type ControlOption func(*Control)

// WithConnector replaces the system-bus connector, primarily for tests.
func WithConnector(connect func() (Connection, error)) ControlOption {
	return func(c *Control) {
		if connect != nil {
			c.connect = connect
		}
	}
}

// WithLogger attaches a logger to the control connection.
func WithLogger(logger *slog.Logger) ControlOption {
	return func(c *Control) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "bus")
		}
	}
}

// WithSignalBuffer sizes per-transaction signal channels. Data-heavy
// operations burst hundreds of signals, and the bus library drops signals
// when a channel is full.
func WithSignalBuffer(size int) ControlOption {
	return func(c *Control) {
		if size > 0 {
			c.buffer = size
		}
	}
}

// NewControl creates a Control. No bus traffic happens until the first
// allocation.
func NewControl(opts ...ControlOption) *Control {
	control := &Control{
		connect: systemBusConnector,
		logger:  logging.NewNop(),
		buffer:  256,
	}
	for _, opt := range opts {
		opt(control)
	}
	return control
}

// Transaction allocates a fresh daemon transaction and returns a handle bound
// to its object path. Handles are single-use.
func (c *Control) Transaction(ctx context.Context) (*Transaction, error) {
	tid, conn, err := c.allocateTID(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("allocated transaction", logging.String(logging.FieldTID, string(tid)))
	return &Transaction{
		conn:   conn,
		obj:    conn.Object(BusName, tid),
		path:   tid,
		buffer: c.buffer,
	}, nil
}

func (c *Control) allocateTID(ctx context.Context) (dbus.ObjectPath, Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	obj, err := c.controlObjectLocked()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDaemonUnreachable, err)
	}

	var tid string
	err = obj.CallWithContext(ctx, methodGetTid, 0).Store(&tid)
	if err != nil && IsDBusError(err, ErrNameServiceUnknown) {
		// The daemon exits when idle; establish a fresh control object and
		// retry once so the name gets re-activated.
		c.logger.Debug("daemon not on bus, re-establishing control object")
		obj, err = c.reestablishLocked()
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrDaemonUnreachable, err)
		}
		err = obj.CallWithContext(ctx, methodGetTid, 0).Store(&tid)
	}
	if err != nil {
		if IsDBusError(err, ErrNameServiceUnknown) {
			return "", nil, fmt.Errorf("%w: %v", ErrDaemonUnreachable, err)
		}
		return "", nil, fmt.Errorf("allocate transaction: %w", err)
	}

	path := dbus.ObjectPath(tid)
	if !path.IsValid() {
		return "", nil, fmt.Errorf("allocate transaction: daemon returned invalid path %q", tid)
	}
	return path, c.conn, nil
}

func (c *Control) controlObjectLocked() (Object, error) {
	if c.obj != nil {
		return c.obj, nil
	}
	return c.reestablishLocked()
}

func (c *Control) reestablishLocked() (Object, error) {
	conn, err := c.connect()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	c.conn = conn
	c.obj = conn.Object(BusName, ControlPath)
	return c.obj, nil
}

// SuggestDaemonQuit asks the daemon to shut down when idle. Daemon-side
// refusals and an unreachable daemon are not errors here; there is nothing
// to quit.
func (c *Control) SuggestDaemonQuit(ctx context.Context) error {
	c.mu.Lock()
	obj, err := c.controlObjectLocked()
	c.mu.Unlock()
	if err != nil {
		c.logger.Debug("suggest daemon quit skipped", logging.Error(err))
		return nil
	}

	call := obj.CallWithContext(ctx, methodSuggestDaemonQuit, 0)
	if call.Err == nil {
		return nil
	}
	if name := ErrorName(call.Err); name != "" {
		c.logger.Debug("suggest daemon quit refused", logging.String("dbus_error", name))
		return nil
	}
	return call.Err
}
