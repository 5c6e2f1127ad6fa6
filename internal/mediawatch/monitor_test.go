package mediawatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"pkgkit/internal/config"
)

func watchConfig(devices ...string) *config.Config {
	cfg := &config.Config{}
	cfg.MediaWatch.Enabled = true
	cfg.MediaWatch.Devices = devices
	cfg.MediaWatch.SettleSeconds = 1
	return cfg
}

func TestNew(t *testing.T) {
	t.Run("nil config returns nil", func(t *testing.T) {
		if m := New(nil, nil, nil); m != nil {
			t.Error("expected nil monitor for nil config")
		}
	})

	t.Run("disabled config returns nil", func(t *testing.T) {
		cfg := &config.Config{}
		if m := New(cfg, nil, nil); m != nil {
			t.Error("expected nil monitor when disabled")
		}
	})

	t.Run("enabled config creates monitor", func(t *testing.T) {
		m := New(watchConfig("sr0"), nil, nil)
		if m == nil {
			t.Fatal("expected non-nil monitor")
		}
		if len(m.devices) != 1 || m.devices[0] != "sr0" {
			t.Errorf("devices = %v, want [sr0]", m.devices)
		}
	})
}

func TestNilAndUnstartedMonitorsAreSafe(t *testing.T) {
	t.Run("nil monitor", func(t *testing.T) {
		var m *Monitor
		if m.Running() {
			t.Error("Running() = true for nil monitor")
		}
		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start on nil monitor error = %v", err)
		}
		m.Stop()
	})

	t.Run("unstarted monitor", func(t *testing.T) {
		m := New(watchConfig("sr0"), nil, nil)
		if m.Running() {
			t.Error("Running() = true before Start")
		}
		m.Stop()
		m.Stop()
		if m.Running() {
			t.Error("Running() = true after Stop")
		}
	})
}

func TestMediaMatcher(t *testing.T) {
	matcher := mediaMatcher()

	mediaEnv := map[string]string{
		"SUBSYSTEM":      "block",
		"ID_CDROM":       "1",
		"ID_CDROM_MEDIA": "1",
	}

	if !matcher.Evaluate(netlink.UEvent{Action: netlink.CHANGE, Env: mediaEnv}) {
		t.Error("matcher rejected a change event with loaded media")
	}
	if !matcher.Evaluate(netlink.UEvent{Action: netlink.ADD, Env: mediaEnv}) {
		t.Error("matcher rejected an add event with loaded media")
	}
	if matcher.Evaluate(netlink.UEvent{Action: netlink.REMOVE, Env: mediaEnv}) {
		t.Error("matcher accepted a remove event")
	}
	if matcher.Evaluate(netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{
		"SUBSYSTEM": "block",
		"ID_CDROM":  "1",
	}}) {
		t.Error("matcher accepted an event without loaded media")
	}
}

func TestKernelName(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"devname", map[string]string{"DEVNAME": "/dev/sr0"}, "sr0"},
		{"devname without prefix", map[string]string{"DEVNAME": "sr0"}, "sr0"},
		{"devpath fallback", map[string]string{
			"DEVPATH": "/devices/pci0000:00/0000:00:1f.2/ata1/host0/target0:0:0/0:0:0:0/block/sr0",
		}, "sr0"},
		{"nothing", map[string]string{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kernelName(netlink.UEvent{Env: tt.env}); got != tt.want {
				t.Errorf("kernelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandleEventFiltersAndDebounces(t *testing.T) {
	event := func(devname string) netlink.UEvent {
		return netlink.UEvent{
			Action: netlink.CHANGE,
			Env:    map[string]string{"DEVNAME": devname},
		}
	}

	t.Run("unwatched device is ignored", func(t *testing.T) {
		var calls atomic.Int32
		m := New(watchConfig("sr0"), nil, func(context.Context, string) error {
			calls.Add(1)
			return nil
		})
		m.settle = 10 * time.Millisecond
		m.running = true

		m.handleEvent(context.Background(), event("/dev/sdb"))
		time.Sleep(100 * time.Millisecond)
		if calls.Load() != 0 {
			t.Errorf("handler ran %d times for unwatched device, want 0", calls.Load())
		}
	})

	t.Run("empty allowlist watches everything", func(t *testing.T) {
		got := make(chan string, 1)
		m := New(watchConfig(), nil, func(_ context.Context, device string) error {
			got <- device
			return nil
		})
		m.settle = 10 * time.Millisecond
		m.running = true

		m.handleEvent(context.Background(), event("/dev/sdb"))
		select {
		case device := <-got:
			if device != "/dev/sdb" {
				t.Errorf("handler device = %q, want /dev/sdb", device)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("handler never ran")
		}
	})

	t.Run("burst collapses to one call", func(t *testing.T) {
		var calls atomic.Int32
		m := New(watchConfig("sr0"), nil, func(context.Context, string) error {
			calls.Add(1)
			return nil
		})
		m.settle = 30 * time.Millisecond
		m.running = true

		for range 4 {
			m.handleEvent(context.Background(), event("/dev/sr0"))
		}
		time.Sleep(300 * time.Millisecond)
		if calls.Load() != 1 {
			t.Errorf("handler ran %d times for one burst, want 1", calls.Load())
		}
	})

	t.Run("stop drops pending timers", func(t *testing.T) {
		var calls atomic.Int32
		m := New(watchConfig("sr0"), nil, func(context.Context, string) error {
			calls.Add(1)
			return nil
		})
		m.settle = 30 * time.Millisecond
		m.running = true
		m.quit = make(chan struct{})

		m.handleEvent(context.Background(), event("/dev/sr0"))
		m.Stop()
		time.Sleep(150 * time.Millisecond)
		if calls.Load() != 0 {
			t.Errorf("handler ran %d times after Stop, want 0", calls.Load())
		}
	})
}
