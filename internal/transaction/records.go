package transaction

import "strings"

// Package is one package as reported by the daemon.
type Package struct {
	Installed bool
	ID        string
	Summary   string
}

// Name returns the leading name component of the package ID
// ("name;version;arch;data").
func (p Package) Name() string {
	if i := strings.IndexByte(p.ID, ';'); i >= 0 {
		return p.ID[:i]
	}
	return p.ID
}

// Details carries extended metadata for one package.
type Details struct {
	ID          string
	License     string
	Group       string
	Description string
	URL         string
	Size        uint64
}

// UpdateDetails describes one available update.
type UpdateDetails struct {
	ID          string
	Updates     string
	Obsoletes   string
	VendorURL   string
	BugzillaURL string
	CVEURL      string
	Restart     string
	UpdateText  string
	Changelog   string
	State       string
	Issued      string
	Updated     string
}

// Category is one node of the daemon's package group tree.
type Category struct {
	ParentID   string
	CategoryID string
	Name       string
	Summary    string
	Icon       string
}

// RepoDetail describes one configured repository.
type RepoDetail struct {
	ID          string
	Description string
	Enabled     bool
}

// Files lists the files owned by one package. FileList is the daemon's
// semicolon-separated form, kept verbatim.
type Files struct {
	ID       string
	FileList string
}

// List splits FileList into individual paths.
func (f Files) List() []string {
	if f.FileList == "" {
		return nil
	}
	return strings.Split(f.FileList, ";")
}

// DistroUpgrade announces one available distribution upgrade.
type DistroUpgrade struct {
	Type    string
	Name    string
	Summary string
}

// OldTransaction is one row of the daemon's own transaction log.
type OldTransaction struct {
	TID       string
	Timespec  string
	Succeeded bool
	Role      string
	Duration  uint32
	Data      string
}
