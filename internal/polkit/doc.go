// Package polkit retries daemon calls that were refused by policy after
// obtaining interactive authorization from the PolicyKit agent on the
// session bus.
package polkit
