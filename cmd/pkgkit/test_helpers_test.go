package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"pkgkit/internal/bus"
	"pkgkit/internal/client"
	"pkgkit/internal/config"
	"pkgkit/internal/transaction"
)

const testPath = dbus.ObjectPath("/7_cafe0001")

// writeTestConfig writes a config that keeps every optional subsystem off and
// all state inside the test's temp dir.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf(`[transaction]
cancel_delay_ms = 0

[auth]
enabled = false

[history]
enabled = false
dir = %q

[logging]
format = "console"
level = "error"
`, filepath.Join(dir, "history"))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

// newTestContext builds a commandContext whose client talks to the given
// fake daemon instead of the system bus.
func newTestContext(t *testing.T, daemon client.Daemon) *commandContext {
	t.Helper()
	configPath := writeTestConfig(t)
	ctx := newCommandContext(&configPath)
	ctx.newClient = func(cfg *config.Config) (*client.Client, func(), error) {
		return client.New(nil, client.WithDaemon(daemon)), func() {}, nil
	}
	return ctx
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func sig(member string, body ...any) *dbus.Signal {
	return &dbus.Signal{
		Path: testPath,
		Name: bus.TransactionInterface + "." + member,
		Body: body,
	}
}

func finishedOK() *dbus.Signal {
	return sig("Finished", "success", uint32(20))
}

func packageSignal(installed bool, id, summary string) *dbus.Signal {
	return sig("Package", installed, id, summary)
}

type recordedCall struct {
	member string
	args   []any
}

// fakeHandle replays queued signals once the first non-SetLocale method call
// lands, mimicking a daemon transaction.
type fakeHandle struct {
	signals []*dbus.Signal
	calls   []recordedCall

	ch      chan *dbus.Signal
	emitted bool
}

func (h *fakeHandle) Path() dbus.ObjectPath { return testPath }

func (h *fakeHandle) Call(ctx context.Context, member string, args ...any) error {
	h.calls = append(h.calls, recordedCall{member: member, args: args})
	if member == "SetLocale" {
		return nil
	}
	if h.ch != nil && !h.emitted {
		h.emitted = true
		for _, s := range h.signals {
			h.ch <- s
		}
	}
	return nil
}

func (h *fakeHandle) Cancel(ctx context.Context) error { return nil }

func (h *fakeHandle) Subscribe() (<-chan *dbus.Signal, func(), error) {
	h.ch = make(chan *dbus.Signal, len(h.signals)+8)
	return h.ch, func() {}, nil
}

// fakeDaemon hands out one prepared handle per transaction request.
type fakeDaemon struct {
	handles []*fakeHandle
	next    int
	quits   int
}

func (d *fakeDaemon) Transaction(ctx context.Context) (transaction.Handle, error) {
	if d.next >= len(d.handles) {
		return nil, errors.New("fake daemon is out of transactions")
	}
	h := d.handles[d.next]
	d.next++
	return h, nil
}

func (d *fakeDaemon) SuggestDaemonQuit(ctx context.Context) error {
	d.quits++
	return nil
}
