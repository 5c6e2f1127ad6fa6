package transaction

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"pkgkit/internal/bus"
)

// Event is one decoded transaction signal. The set of implementations is
// closed: every signal kind the daemon emits has its own type, so consumers
// switch over concrete types instead of matching member strings.
type Event interface {
	event()
}

// FinishedEvent terminates a transaction. Status is the daemon exit enum
// ("success", "failed", "cancelled", ...); Runtime is in milliseconds.
type FinishedEvent struct {
	Status  string
	Runtime uint32
}

// ErrorCodeEvent reports the daemon's failure cause for the transaction.
type ErrorCodeEvent struct {
	Code    string
	Details string
}

// StatusEvent reports what the backend is currently doing ("download", ...).
type StatusEvent struct {
	Status string
}

// AllowCancelEvent reports whether Cancel would currently be honored.
type AllowCancelEvent struct {
	Allowed bool
}

// ProgressEvent carries the daemon's raw progress counters. A value of 101
// means unknown.
type ProgressEvent struct {
	Percentage    uint32
	Subpercentage uint32
	Elapsed       uint32
	Remaining     uint32
}

type PackageEvent struct{ Package Package }

type DetailsEvent struct{ Details Details }

type UpdateDetailsEvent struct{ UpdateDetails UpdateDetails }

type CategoryEvent struct{ Category Category }

type RepoDetailEvent struct{ RepoDetail RepoDetail }

type FilesEvent struct{ Files Files }

type DistroUpgradeEvent struct{ DistroUpgrade DistroUpgrade }

type OldTransactionEvent struct{ OldTransaction OldTransaction }

func (FinishedEvent) event()       {}
func (ErrorCodeEvent) event()      {}
func (StatusEvent) event()         {}
func (AllowCancelEvent) event()    {}
func (ProgressEvent) event()       {}
func (PackageEvent) event()        {}
func (DetailsEvent) event()        {}
func (UpdateDetailsEvent) event()  {}
func (CategoryEvent) event()       {}
func (RepoDetailEvent) event()     {}
func (FilesEvent) event()          {}
func (DistroUpgradeEvent) event()  {}
func (OldTransactionEvent) event() {}

// DecodeSignal maps a raw bus signal to its Event. Signals outside the
// transaction interface and unknown members return (nil, nil) and are
// ignored by callers.
func DecodeSignal(sig *dbus.Signal) (Event, error) {
	member, ok := strings.CutPrefix(sig.Name, bus.TransactionInterface+".")
	if !ok {
		return nil, nil
	}

	switch member {
	case "Finished":
		var ev FinishedEvent
		if err := dbus.Store(sig.Body, &ev.Status, &ev.Runtime); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "ErrorCode":
		var ev ErrorCodeEvent
		if err := dbus.Store(sig.Body, &ev.Code, &ev.Details); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "StatusChanged":
		var ev StatusEvent
		if err := dbus.Store(sig.Body, &ev.Status); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "AllowCancel":
		var ev AllowCancelEvent
		if err := dbus.Store(sig.Body, &ev.Allowed); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "ProgressChanged":
		var ev ProgressEvent
		if err := dbus.Store(sig.Body, &ev.Percentage, &ev.Subpercentage, &ev.Elapsed, &ev.Remaining); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "Package":
		var ev PackageEvent
		if err := dbus.Store(sig.Body, &ev.Package.Installed, &ev.Package.ID, &ev.Package.Summary); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "Details":
		var ev DetailsEvent
		d := &ev.Details
		if err := dbus.Store(sig.Body, &d.ID, &d.License, &d.Group, &d.Description, &d.URL, &d.Size); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "UpdateDetail":
		var ev UpdateDetailsEvent
		u := &ev.UpdateDetails
		if err := dbus.Store(sig.Body,
			&u.ID, &u.Updates, &u.Obsoletes, &u.VendorURL, &u.BugzillaURL, &u.CVEURL,
			&u.Restart, &u.UpdateText, &u.Changelog, &u.State, &u.Issued, &u.Updated); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "Category":
		var ev CategoryEvent
		c := &ev.Category
		if err := dbus.Store(sig.Body, &c.ParentID, &c.CategoryID, &c.Name, &c.Summary, &c.Icon); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "RepoDetail":
		var ev RepoDetailEvent
		r := &ev.RepoDetail
		if err := dbus.Store(sig.Body, &r.ID, &r.Description, &r.Enabled); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "Files":
		var ev FilesEvent
		if err := dbus.Store(sig.Body, &ev.Files.ID, &ev.Files.FileList); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "DistroUpgrade":
		var ev DistroUpgradeEvent
		d := &ev.DistroUpgrade
		if err := dbus.Store(sig.Body, &d.Type, &d.Name, &d.Summary); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	case "Transaction":
		var ev OldTransactionEvent
		o := &ev.OldTransaction
		if err := dbus.Store(sig.Body, &o.TID, &o.Timespec, &o.Succeeded, &o.Role, &o.Duration, &o.Data); err != nil {
			return nil, decodeError(member, err)
		}
		return ev, nil
	default:
		return nil, nil
	}
}

func decodeError(member string, err error) error {
	return fmt.Errorf("decode %s signal: %w", member, err)
}
