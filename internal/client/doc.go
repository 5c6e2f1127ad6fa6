// Package client is the synchronous public surface over the PackageKit
// daemon. Every method allocates a fresh daemon transaction, invokes the
// matching remote method, and blocks until the transaction's terminal signal,
// returning typed records or a typed error. Long-running operations accept a
// progress callback that can request cancellation.
package client
