package bus

import (
	"errors"

	"github.com/godbus/dbus/v5"
)

// Well-known PackageKit names on the system bus.
const (
	BusName              = "org.freedesktop.PackageKit"
	ControlInterface     = "org.freedesktop.PackageKit"
	TransactionInterface = "org.freedesktop.PackageKit.Transaction"

	ControlPath dbus.ObjectPath = "/org/freedesktop/PackageKit"

	methodGetTid            = ControlInterface + ".GetTid"
	methodSuggestDaemonQuit = ControlInterface + ".SuggestDaemonQuit"
)

// D-Bus error names the client reacts to by name.
const (
	ErrNameServiceUnknown  = "org.freedesktop.DBus.Error.ServiceUnknown"
	ErrNameRefusedByPolicy = "org.freedesktop.PackageKit.Transaction.RefusedByPolicy"
	ErrNameCannotCancel    = "org.freedesktop.PackageKit.Transaction.CannotCancel"
)

// ErrorName extracts the D-Bus error name from err, or "" when err does not
// carry one.
func ErrorName(err error) string {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		return dbusErr.Name
	}
	return ""
}

// IsDBusError reports whether err is a D-Bus error with the given name.
func IsDBusError(err error, name string) bool {
	return err != nil && ErrorName(err) == name
}
