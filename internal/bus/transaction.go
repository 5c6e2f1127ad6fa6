package bus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Transaction is a handle to one daemon transaction object. A handle carries
// exactly one operation: the daemon destroys the remote object after its
// Finished signal.
type Transaction struct {
	conn   Connection
	obj    Object
	path   dbus.ObjectPath
	buffer int
}

// Path returns the transaction's object path.
func (t *Transaction) Path() dbus.ObjectPath {
	return t.path
}

// Call invokes a method on the transaction interface and waits for the
// reply. Data flows back through signals, not the reply.
func (t *Transaction) Call(ctx context.Context, member string, args ...any) error {
	call := t.obj.CallWithContext(ctx, TransactionInterface+"."+member, 0, args...)
	return call.Err
}

// Cancel asks the daemon to abort the transaction.
func (t *Transaction) Cancel(ctx context.Context) error {
	return t.Call(ctx, "Cancel")
}

// Subscribe registers a signal channel matched to this transaction's object
// path. The channel may still observe signals from other transactions on the
// same connection; readers filter by Path. The returned cancel func removes
// the match and unregisters the channel.
func (t *Transaction) Subscribe() (<-chan *dbus.Signal, func(), error) {
	options := []dbus.MatchOption{
		dbus.WithMatchObjectPath(t.path),
		dbus.WithMatchInterface(TransactionInterface),
	}
	if err := t.conn.AddMatchSignal(options...); err != nil {
		return nil, nil, fmt.Errorf("subscribe transaction signals: %w", err)
	}

	ch := make(chan *dbus.Signal, t.buffer)
	t.conn.Signal(ch)

	cancel := func() {
		_ = t.conn.RemoveMatchSignal(options...)
		t.conn.RemoveSignal(ch)
	}
	return ch, cancel, nil
}
