package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"pkgkit/internal/bus"
	"pkgkit/internal/logging"
)

// DefaultCancelDelay is how long a progress-initiated cancel waits before the
// Cancel call goes out. Cancelling a backend that is still setting up tends
// to time out instead of aborting.
const DefaultCancelDelay = 10 * time.Millisecond

// Handle is the transaction surface the runner drives.
type Handle interface {
	Path() dbus.ObjectPath
	Call(ctx context.Context, member string, args ...any) error
	Cancel(ctx context.Context) error
	Subscribe() (<-chan *dbus.Signal, func(), error)
}

var _ Handle = (*bus.Transaction)(nil)

// RunOption customizes one Run.
type RunOption func(*runner)

// WithProgress attaches a progress callback to the run.
func WithProgress(fn ProgressFunc) RunOption {
	return func(r *runner) { r.progressFn = fn }
}

// WithCancelDelay overrides how long a progress-initiated cancel waits before
// the Cancel call goes out.
func WithCancelDelay(delay time.Duration) RunOption {
	return func(r *runner) {
		if delay >= 0 {
			r.cancelDelay = delay
		}
	}
}

// WithRunLogger attaches a logger to the run.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(r *runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type runner struct {
	handle      Handle
	progressFn  ProgressFunc
	cancelDelay time.Duration
	logger      *slog.Logger

	progress        Progress
	result          *Result
	daemonErr       *Error
	cancelRequested bool
	cancelResult    chan error
	cancelTimer     *time.Timer
}

// Run drives one transaction to completion: it subscribes to the handle's
// signals, invokes the remote method, and blocks until the daemon's Finished
// signal arrives or ctx expires. A Result is only returned for a successful
// exit, never alongside an error.
func Run(ctx context.Context, handle Handle, invoke func(context.Context) error, opts ...RunOption) (*Result, error) {
	r := &runner{
		handle:      handle,
		cancelDelay: DefaultCancelDelay,
		logger:      logging.NewNop(),
		result:      &Result{},
	}
	for _, opt := range opts {
		opt(r)
	}

	// Subscribe before invoking so no signal can slip past the channel.
	signals, unsubscribe, err := handle.Subscribe()
	if err != nil {
		return nil, err
	}
	defer unsubscribe()

	if err := invoke(ctx); err != nil {
		return nil, err
	}

	return r.wait(ctx, signals)
}

func (r *runner) wait(ctx context.Context, signals <-chan *dbus.Signal) (*Result, error) {
	for {
		select {
		case <-ctx.Done():
			r.stopCancelTimer()
			r.abandon()
			return nil, ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil, errors.New("bus connection lost")
			}
			if sig == nil || sig.Path != r.handle.Path() {
				// The connection fans every matched signal out to every
				// subscriber, so concurrent transactions bleed through here.
				continue
			}
			event, err := DecodeSignal(sig)
			if err != nil {
				r.logger.Warn("dropping undecodable signal",
					logging.String(logging.FieldTID, string(sig.Path)),
					logging.Error(err))
				continue
			}
			if event == nil {
				continue
			}
			if finished, ok := event.(FinishedEvent); ok {
				return r.finish(ctx, finished)
			}
			r.consume(event)
		}
	}
}

func (r *runner) consume(event Event) {
	switch ev := event.(type) {
	case ErrorCodeEvent:
		r.daemonErr = &Error{Code: ev.Code, Details: ev.Details}
	case StatusEvent:
		r.progress.Status = ev.Status
	case AllowCancelEvent:
		r.progress.AllowCancel = ev.Allowed
	case ProgressEvent:
		r.progress.Percentage = ev.Percentage
		r.progress.Subpercentage = ev.Subpercentage
		r.progress.Elapsed = ev.Elapsed
		r.progress.Remaining = ev.Remaining
		r.relayProgress()
	default:
		r.result.add(event)
	}
}

func (r *runner) relayProgress() {
	if r.progressFn == nil {
		return
	}
	keepGoing := r.progressFn(r.progress)
	if keepGoing || r.cancelRequested || !r.progress.AllowCancel {
		return
	}

	r.cancelRequested = true
	r.cancelResult = make(chan error, 1)
	handle := r.handle
	result := r.cancelResult
	// The delay gives the backend time to leave setup; aborting a transaction
	// that has not started work yet upsets some backends.
	r.cancelTimer = time.AfterFunc(r.cancelDelay, func() {
		result <- handle.Cancel(context.Background())
	})
	r.logger.Debug("cancel requested by progress callback",
		logging.String(logging.FieldTID, string(r.handle.Path())))
}

func (r *runner) finish(ctx context.Context, finished FinishedEvent) (*Result, error) {
	r.result.Runtime = finished.Runtime

	cancelErr := r.collectCancelResult(ctx)

	switch {
	case r.daemonErr != nil:
		return nil, r.daemonErr
	case finished.Status != StatusSuccess:
		return nil, &Error{
			Code:    CodeInternalError,
			Details: fmt.Sprintf("transaction exited with status %q", finished.Status),
		}
	case cancelErr != nil:
		return nil, cancelErr
	default:
		return r.result, nil
	}
}

// collectCancelResult resolves an in-flight progress-initiated cancel. A
// refusal because the transaction can no longer be cancelled is not an error.
func (r *runner) collectCancelResult(ctx context.Context) error {
	if r.cancelTimer == nil {
		return nil
	}
	if r.cancelTimer.Stop() {
		return nil
	}
	select {
	case err := <-r.cancelResult:
		if err == nil || bus.IsDBusError(err, bus.ErrNameCannotCancel) {
			return nil
		}
		return fmt.Errorf("cancel transaction: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *runner) stopCancelTimer() {
	if r.cancelTimer != nil {
		r.cancelTimer.Stop()
	}
}

// abandon makes a best-effort attempt to stop the remote transaction when the
// caller gives up waiting on it.
func (r *runner) abandon() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.handle.Cancel(ctx); err != nil {
		r.logger.Debug("abandon cancel failed", logging.Error(err))
	}
}
