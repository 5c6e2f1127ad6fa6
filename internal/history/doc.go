// Package history keeps a local journal of mutating package operations in
// SQLite: what ran, against which packages, and how it ended. The daemon has
// its own transaction log; this one survives daemon reinstalls and records
// the client's view, including failures that never reached the daemon.
package history
