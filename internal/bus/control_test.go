package bus_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"

	"pkgkit/internal/bus"
)

type fakeObject struct {
	mu      sync.Mutex
	methods []string
	handler func(method string, args []any) *dbus.Call
}

func (f *fakeObject) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...any) *dbus.Call {
	f.mu.Lock()
	f.methods = append(f.methods, method)
	f.mu.Unlock()
	if f.handler != nil {
		return f.handler(method, args)
	}
	return &dbus.Call{}
}

func (f *fakeObject) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

type fakeConn struct {
	mu         sync.Mutex
	objects    map[dbus.ObjectPath]*fakeObject
	addMatch   int
	delMatch   int
	registered map[chan<- *dbus.Signal]bool
	matchErr   error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		objects:    map[dbus.ObjectPath]*fakeObject{},
		registered: map[chan<- *dbus.Signal]bool{},
	}
}

func (f *fakeConn) object(path dbus.ObjectPath) *fakeObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[path]
	if !ok {
		obj = &fakeObject{}
		f.objects[path] = obj
	}
	return obj
}

func (f *fakeConn) Object(_ string, path dbus.ObjectPath) bus.Object {
	return f.object(path)
}

func (f *fakeConn) AddMatchSignal(...dbus.MatchOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.matchErr != nil {
		return f.matchErr
	}
	f.addMatch++
	return nil
}

func (f *fakeConn) RemoveMatchSignal(...dbus.MatchOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delMatch++
	return nil
}

func (f *fakeConn) Signal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[ch] = true
}

func (f *fakeConn) RemoveSignal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registered, ch)
}

func tidCall(tid string) *dbus.Call {
	return &dbus.Call{Body: []any{tid}}
}

func errCall(name string) *dbus.Call {
	return &dbus.Call{Err: dbus.Error{Name: name, Body: []any{"refused"}}}
}

func TestTransactionAllocatesFreshPaths(t *testing.T) {
	conn := newFakeConn()
	next := 0
	conn.object(bus.ControlPath).handler = func(method string, _ []any) *dbus.Call {
		next++
		return tidCall(fmt.Sprintf("/%d_aabbccdd_data", next))
	}
	connects := 0
	control := bus.NewControl(bus.WithConnector(func() (bus.Connection, error) {
		connects++
		return conn, nil
	}))

	first, err := control.Transaction(context.Background())
	if err != nil {
		t.Fatalf("Transaction returned error: %v", err)
	}
	second, err := control.Transaction(context.Background())
	if err != nil {
		t.Fatalf("Transaction returned error: %v", err)
	}

	if first.Path() == second.Path() {
		t.Fatalf("expected distinct transaction paths, got %q twice", first.Path())
	}
	if connects != 1 {
		t.Fatalf("expected one bus connection for repeated allocations, got %d", connects)
	}
}

func TestTransactionRetriesOnceWhenDaemonOffBus(t *testing.T) {
	conn := newFakeConn()
	attempts := 0
	conn.object(bus.ControlPath).handler = func(string, []any) *dbus.Call {
		attempts++
		if attempts == 1 {
			return errCall(bus.ErrNameServiceUnknown)
		}
		return tidCall("/7_deadbeef_data")
	}
	connects := 0
	control := bus.NewControl(bus.WithConnector(func() (bus.Connection, error) {
		connects++
		return conn, nil
	}))

	xn, err := control.Transaction(context.Background())
	if err != nil {
		t.Fatalf("Transaction returned error: %v", err)
	}
	if xn.Path() != "/7_deadbeef_data" {
		t.Fatalf("unexpected path %q", xn.Path())
	}
	if attempts != 2 {
		t.Fatalf("expected exactly one retry, got %d attempts", attempts)
	}
	if connects != 2 {
		t.Fatalf("expected control re-establish before retry, got %d connects", connects)
	}
}

func TestTransactionReportsUnreachableDaemon(t *testing.T) {
	conn := newFakeConn()
	conn.object(bus.ControlPath).handler = func(string, []any) *dbus.Call {
		return errCall(bus.ErrNameServiceUnknown)
	}
	control := bus.NewControl(bus.WithConnector(func() (bus.Connection, error) {
		return conn, nil
	}))

	_, err := control.Transaction(context.Background())
	if !errors.Is(err, bus.ErrDaemonUnreachable) {
		t.Fatalf("expected ErrDaemonUnreachable, got %v", err)
	}
}

func TestTransactionConnectFailureIsUnreachable(t *testing.T) {
	control := bus.NewControl(bus.WithConnector(func() (bus.Connection, error) {
		return nil, errors.New("no system bus")
	}))

	_, err := control.Transaction(context.Background())
	if !errors.Is(err, bus.ErrDaemonUnreachable) {
		t.Fatalf("expected ErrDaemonUnreachable, got %v", err)
	}
}

func TestTransactionDoesNotRetryOtherErrors(t *testing.T) {
	conn := newFakeConn()
	attempts := 0
	conn.object(bus.ControlPath).handler = func(string, []any) *dbus.Call {
		attempts++
		return errCall("org.freedesktop.DBus.Error.AccessDenied")
	}
	control := bus.NewControl(bus.WithConnector(func() (bus.Connection, error) {
		return conn, nil
	}))

	_, err := control.Transaction(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, bus.ErrDaemonUnreachable) {
		t.Fatalf("unrelated bus errors must not map to ErrDaemonUnreachable: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected no retry for unrelated errors, got %d attempts", attempts)
	}
}

func TestTransactionRejectsInvalidPath(t *testing.T) {
	conn := newFakeConn()
	conn.object(bus.ControlPath).handler = func(string, []any) *dbus.Call {
		return tidCall("not a path")
	}
	control := bus.NewControl(bus.WithConnector(func() (bus.Connection, error) {
		return conn, nil
	}))

	if _, err := control.Transaction(context.Background()); err == nil {
		t.Fatal("expected error for invalid transaction path")
	}
}

func TestSuggestDaemonQuitSwallowsDaemonGone(t *testing.T) {
	conn := newFakeConn()
	conn.object(bus.ControlPath).handler = func(method string, _ []any) *dbus.Call {
		return errCall(bus.ErrNameServiceUnknown)
	}
	control := bus.NewControl(bus.WithConnector(func() (bus.Connection, error) {
		return conn, nil
	}))

	if err := control.SuggestDaemonQuit(context.Background()); err != nil {
		t.Fatalf("expected daemon-gone to be swallowed, got %v", err)
	}

	unreachable := bus.NewControl(bus.WithConnector(func() (bus.Connection, error) {
		return nil, errors.New("no system bus")
	}))
	if err := unreachable.SuggestDaemonQuit(context.Background()); err != nil {
		t.Fatalf("expected connect failure to be swallowed, got %v", err)
	}
}

func TestErrorNameHelpers(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w", dbus.Error{Name: bus.ErrNameCannotCancel})
	if !bus.IsDBusError(wrapped, bus.ErrNameCannotCancel) {
		t.Fatal("expected wrapped dbus error to match by name")
	}
	if bus.IsDBusError(errors.New("plain"), bus.ErrNameCannotCancel) {
		t.Fatal("plain errors must not match")
	}
	if bus.ErrorName(nil) != "" {
		t.Fatal("nil error has no name")
	}
}
