package mediawatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"pkgkit/internal/config"
	"pkgkit/internal/logging"
)

// Handler runs when media has been inserted and the settle window elapsed.
// device is the full path, e.g. "/dev/sr0". It runs on the monitor's timer
// goroutine; long work should move to its own goroutine or honor ctx.
type Handler func(ctx context.Context, device string) error

// Monitor listens for udev netlink events announcing media insertions and
// invokes a handler per device, debounced: one physical insertion produces a
// burst of uevents, and only the last one within the settle window fires.
type Monitor struct {
	devices []string
	settle  time.Duration
	logger  *slog.Logger
	handler Handler

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
	pending map[string]*time.Timer
}

// New creates a media monitor from the mediawatch config section. It returns
// nil when cfg is nil or the watcher is disabled; a nil *Monitor is safe to
// Start and Stop.
func New(cfg *config.Config, logger *slog.Logger, handler Handler) *Monitor {
	if cfg == nil || !cfg.MediaWatch.Enabled {
		return nil
	}

	return &Monitor{
		devices: append([]string(nil), cfg.MediaWatch.Devices...),
		settle:  cfg.MediaSettle(),
		logger:  logging.NewComponentLogger(logger, "mediawatch"),
		handler: handler,
		pending: make(map[string]*time.Timer),
	}
}

// Start connects the netlink socket and begins watching. A socket that cannot
// be opened (missing privileges, non-Linux kernel) only logs; refreshes then
// rely on manual triggers.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("netlink socket unavailable, media refresh disabled",
			logging.Error(err))
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.watch(ctx, quit)

	m.logger.Info("media monitor started",
		logging.String("devices", strings.Join(m.devices, ",")),
		logging.Duration("settle", m.settle))
	return nil
}

// Stop shuts the monitor down and drops pending settle timers.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	for device, timer := range m.pending {
		timer.Stop()
		delete(m.pending, device)
	}
	m.running = false

	m.logger.Info("media monitor stopped")
}

// Running reports whether the monitor is watching.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) watch(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, mediaMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

// mediaMatcher matches block devices announcing loaded optical media:
// SUBSYSTEM=block, ID_CDROM=1, ID_CDROM_MEDIA=1, ACTION=change|add.
func mediaMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	name := kernelName(uevent)
	if name == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj))
		return
	}
	if !m.watched(name) {
		m.logger.Debug("ignoring event for unwatched device",
			logging.String("device", name))
		return
	}

	m.logger.Info("media detected",
		logging.String("device", name),
		logging.String("action", string(uevent.Action)))
	m.schedule(ctx, name)
}

// schedule arms (or re-arms) the settle timer for one device.
func (m *Monitor) schedule(ctx context.Context, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if timer, ok := m.pending[name]; ok {
		timer.Reset(m.settle)
		return
	}
	m.pending[name] = time.AfterFunc(m.settle, func() {
		m.fire(ctx, name)
	})
}

func (m *Monitor) fire(ctx context.Context, name string) {
	m.mu.Lock()
	delete(m.pending, name)
	running := m.running
	m.mu.Unlock()

	if !running || m.handler == nil || ctx.Err() != nil {
		return
	}

	device := "/dev/" + name
	if err := m.handler(ctx, device); err != nil {
		m.logger.Warn("media handler failed",
			logging.String("device", device),
			logging.Error(err))
		return
	}
	m.logger.Info("media handled", logging.String("device", device))
}

// watched reports whether the device allowlist covers name. An empty
// allowlist watches every matching device.
func (m *Monitor) watched(name string) bool {
	if len(m.devices) == 0 {
		return true
	}
	for _, device := range m.devices {
		if device == name {
			return true
		}
	}
	return false
}

// kernelName extracts the bare kernel device name ("sr0") from a uevent.
func kernelName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		return strings.TrimPrefix(devname, "/dev/")
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return parts[len(parts)-1]
}
