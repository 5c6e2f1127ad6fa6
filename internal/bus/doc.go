// Package bus owns the D-Bus plumbing between pkgkit and the PackageKit
// daemon: the shared system-bus connection, the control object that allocates
// transactions, and per-transaction handles that carry method calls and
// signal subscriptions.
//
// Everything above this package works with the small Connection and Object
// interfaces so tests can substitute in-memory fakes for the bus.
package bus
