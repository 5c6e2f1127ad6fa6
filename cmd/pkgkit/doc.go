// Package main hosts the pkgkit CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// synchronous calls against the PackageKit system daemon: package queries,
// installs and removals with interactive authorization, repository
// maintenance, cache refreshes, and local history inspection. It centralizes
// configuration resolution, client construction, and structured logging setup
// so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
