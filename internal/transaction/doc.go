// Package transaction converts the daemon's asynchronous, signal-driven
// transaction protocol into blocking calls.
//
// A Run subscribes to a transaction handle's signals, invokes the remote
// method, and consumes events until the terminal Finished signal: data
// signals accumulate into a Result, progress signals feed an optional
// callback, and ErrorCode plus the exit status decide the outcome.
package transaction
