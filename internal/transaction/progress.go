package transaction

// Progress is a snapshot of a running transaction, rebuilt from the
// StatusChanged, AllowCancel, and ProgressChanged signals. Counter values are
// the daemon's verbatim; 101 means unknown.
type Progress struct {
	Status        string
	Percentage    uint32
	Subpercentage uint32
	Elapsed       uint32
	Remaining     uint32
	AllowCancel   bool
}

// ProgressFunc receives a snapshot on every ProgressChanged signal. Returning
// false requests cancellation: when the daemon currently allows it, a single
// Cancel call is issued after a short delay.
type ProgressFunc func(Progress) bool
