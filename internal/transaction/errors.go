package transaction

import "fmt"

// Daemon enum values with meaning baked into the client.
const (
	// StatusSuccess is the Finished exit status of a completed transaction.
	StatusSuccess = "success"
	// CodeInternalError marks a transaction that ended without success and
	// without reporting an error code.
	CodeInternalError = "internal-error"
	// CodeNotSupported marks operations this daemon revision cannot perform.
	CodeNotSupported = "not-supported"
)

// Error is a failure reported by the daemon for one transaction. Code is the
// daemon's error enum ("no-network", "not-supported", ...) and Details its
// free-form explanation.
type Error struct {
	Code    string
	Details string
}

func (e *Error) Error() string {
	if e.Details == "" {
		return "packagekit: " + e.Code
	}
	return fmt.Sprintf("packagekit: %s: %s", e.Code, e.Details)
}

// NotSupported builds the error returned for operations the daemon does not
// implement.
func NotSupported(operation string) *Error {
	return &Error{Code: CodeNotSupported, Details: operation + " is not supported"}
}
