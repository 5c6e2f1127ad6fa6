package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"pkgkit/internal/client"
	"pkgkit/internal/transaction"
)

// packageResolver is the slice of the client the name resolution helper
// needs.
type packageResolver interface {
	Resolve(ctx context.Context, filter string, packages ...string) ([]transaction.Package, error)
}

var _ packageResolver = (*client.Client)(nil)

// packageID holds the components of the daemon's "name;version;arch;data"
// package identifier.
type packageID struct {
	Name    string
	Version string
	Arch    string
	Repo    string
}

func splitPackageID(id string) packageID {
	parts := strings.SplitN(id, ";", 4)
	out := packageID{Name: parts[0]}
	if len(parts) > 1 {
		out.Version = parts[1]
	}
	if len(parts) > 2 {
		out.Arch = parts[2]
	}
	if len(parts) > 3 {
		out.Repo = parts[3]
	}
	return out
}

type resolvePreference int

const (
	// preferAvailable picks the not-yet-installed match, for installs.
	preferAvailable resolvePreference = iota
	// preferInstalled picks the installed match, for removals.
	preferInstalled
)

// resolvePackageIDs turns command arguments into package IDs. Arguments that
// already carry ID separators pass through untouched; bare names go through
// the daemon's Resolve.
func resolvePackageIDs(ctx context.Context, resolver packageResolver, prefer resolvePreference, args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	var names []string
	for _, arg := range args {
		if strings.Contains(arg, ";") {
			ids = append(ids, arg)
		} else {
			names = append(names, arg)
		}
	}
	if len(names) == 0 {
		return ids, nil
	}

	packages, err := resolver.Resolve(ctx, "none", names...)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		id, ok := pickResolved(packages, name, prefer)
		if !ok {
			return nil, fmt.Errorf("no package found for %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func pickResolved(packages []transaction.Package, name string, prefer resolvePreference) (string, bool) {
	var fallback string
	for _, pkg := range packages {
		if pkg.Name() != name {
			continue
		}
		preferred := prefer == preferInstalled && pkg.Installed ||
			prefer == preferAvailable && !pkg.Installed
		if preferred {
			return pkg.ID, true
		}
		if fallback == "" {
			fallback = pkg.ID
		}
	}
	return fallback, fallback != ""
}

func packageColumns() []column {
	return []column{
		{title: "Name"},
		{title: "Version"},
		{title: "Arch"},
		{title: "Repo"},
		{title: "Installed"},
		{title: "Summary", maxWidth: summaryWidth},
	}
}

func packageRows(packages []transaction.Package) [][]string {
	rows := make([][]string, 0, len(packages))
	for _, pkg := range packages {
		id := splitPackageID(pkg.ID)
		rows = append(rows, []string{id.Name, id.Version, id.Arch, id.Repo, yesNo(pkg.Installed), pkg.Summary})
	}
	return rows
}

func printPackages(out io.Writer, packages []transaction.Package, emptyMessage string) {
	if len(packages) == 0 {
		fmt.Fprintln(out, emptyMessage)
		return
	}
	fmt.Fprintln(out, renderTable(packageColumns(), packageRows(packages)))
}

// humanSize renders byte counts in binary units.
func humanSize(size uint64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := uint64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
