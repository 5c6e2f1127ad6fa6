package client

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"pkgkit/internal/transaction"
)

// Resolve maps package names to package identifiers. filter is a daemon
// filter expression ("none", "installed;~devel", ...).
func (c *Client) Resolve(ctx context.Context, filter string, packages ...string) ([]transaction.Package, error) {
	result, err := c.query(ctx, "Resolve", filter, packages)
	if err != nil {
		return nil, err
	}
	return result.Packages, nil
}

// GetDetails fetches license, group, description, url, and size for each
// package identifier.
func (c *Client) GetDetails(ctx context.Context, packageIDs ...string) ([]transaction.Details, error) {
	result, err := c.query(ctx, "GetDetails", packageIDs)
	if err != nil {
		return nil, err
	}
	return result.Details, nil
}

// SearchName searches packages by name.
func (c *Client) SearchName(ctx context.Context, filter, name string) ([]transaction.Package, error) {
	result, err := c.query(ctx, "SearchName", filter, name)
	if err != nil {
		return nil, err
	}
	return result.Packages, nil
}

// SearchGroup searches packages by group.
func (c *Client) SearchGroup(ctx context.Context, filter, groupID string) ([]transaction.Package, error) {
	result, err := c.query(ctx, "SearchGroup", filter, groupID)
	if err != nil {
		return nil, err
	}
	return result.Packages, nil
}

// SearchDetails searches package descriptions.
func (c *Client) SearchDetails(ctx context.Context, filter, term string) ([]transaction.Package, error) {
	result, err := c.query(ctx, "SearchDetails", filter, term)
	if err != nil {
		return nil, err
	}
	return result.Packages, nil
}

// SearchFile finds the packages shipping a file.
func (c *Client) SearchFile(ctx context.Context, filter, search string) ([]transaction.Package, error) {
	result, err := c.query(ctx, "SearchFile", filter, search)
	if err != nil {
		return nil, err
	}
	return result.Packages, nil
}

// GetUpdates lists the newest available update for each installed package.
func (c *Client) GetUpdates(ctx context.Context, filter string) ([]transaction.Package, error) {
	result, err := c.query(ctx, "GetUpdates", filter)
	if err != nil {
		return nil, err
	}
	return result.Packages, nil
}

// GetPackages lists packages known to the daemon, narrowed by filter.
func (c *Client) GetPackages(ctx context.Context, filter string) ([]transaction.Package, error) {
	result, err := c.query(ctx, "GetPackages", filter)
	if err != nil {
		return nil, err
	}
	return result.Packages, nil
}

// GetRepoList lists the repositories configured on the system.
func (c *Client) GetRepoList(ctx context.Context, filter string) ([]transaction.RepoDetail, error) {
	result, err := c.query(ctx, "GetRepoList", filter)
	if err != nil {
		return nil, err
	}
	return result.RepoDetails, nil
}

// GetCategories lists the daemon's package categories.
func (c *Client) GetCategories(ctx context.Context) ([]transaction.Category, error) {
	result, err := c.query(ctx, "GetCategories")
	if err != nil {
		return nil, err
	}
	return result.Categories, nil
}

// GetDepends lists what the given packages depend on.
func (c *Client) GetDepends(ctx context.Context, filter string, recursive bool, packageIDs ...string) ([]transaction.Package, error) {
	result, err := c.query(ctx, "GetDepends", filter, packageIDs, recursive)
	if err != nil {
		return nil, err
	}
	return result.Packages, nil
}

// GetRequires lists what depends on the given packages.
func (c *Client) GetRequires(ctx context.Context, filter string, recursive bool, packageIDs ...string) ([]transaction.Package, error) {
	result, err := c.query(ctx, "GetRequires", filter, packageIDs, recursive)
	if err != nil {
		return nil, err
	}
	return result.Packages, nil
}

// GetUpdateDetail fetches changelog-level detail for pending updates.
func (c *Client) GetUpdateDetail(ctx context.Context, packageIDs ...string) ([]transaction.UpdateDetails, error) {
	result, err := c.query(ctx, "GetUpdateDetail", packageIDs)
	if err != nil {
		return nil, err
	}
	return result.UpdateDetails, nil
}

// GetDistroUpgrades lists newer distribution releases the system can move to.
func (c *Client) GetDistroUpgrades(ctx context.Context) ([]transaction.DistroUpgrade, error) {
	result, err := c.query(ctx, "GetDistroUpgrades")
	if err != nil {
		return nil, err
	}
	return result.DistroUpgrades, nil
}

// WhatProvides finds packages providing an attribute such as a codec or
// mime-type handler.
func (c *Client) WhatProvides(ctx context.Context, providesType, search string) ([]transaction.Package, error) {
	result, err := c.query(ctx, "WhatProvides", providesType, search)
	if err != nil {
		return nil, err
	}
	return result.Packages, nil
}

// GetFiles lists the files each package ships.
func (c *Client) GetFiles(ctx context.Context, packageIDs ...string) ([]transaction.Files, error) {
	result, err := c.query(ctx, "GetFiles", packageIDs)
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// DownloadPackages fetches package archives without installing them and
// reports where they landed.
func (c *Client) DownloadPackages(ctx context.Context, packageIDs ...string) ([]transaction.Files, error) {
	result, err := c.query(ctx, "DownloadPackages", packageIDs)
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// GetOldTransactions returns the daemon's own transaction log, newest first.
// number bounds how many entries come back; 0 means all of them.
func (c *Client) GetOldTransactions(ctx context.Context, number uint32) ([]transaction.OldTransaction, error) {
	result, err := c.query(ctx, "GetOldTransactions", number)
	if err != nil {
		return nil, err
	}
	return result.OldTransactions, nil
}

// InstallPackages installs the given packages. progress may be nil.
func (c *Client) InstallPackages(ctx context.Context, progress transaction.ProgressFunc, packageIDs ...string) error {
	return c.mutate(ctx, "InstallPackages", progress, packageIDs, packageIDs)
}

// UpdatePackages updates the given packages. progress may be nil.
func (c *Client) UpdatePackages(ctx context.Context, progress transaction.ProgressFunc, packageIDs ...string) error {
	return c.mutate(ctx, "UpdatePackages", progress, packageIDs, packageIDs)
}

// RemovePackages removes the given packages. allowDeps permits removing
// dependent packages too; autoRemove cleans up dependencies nothing else
// uses. progress may be nil.
func (c *Client) RemovePackages(ctx context.Context, progress transaction.ProgressFunc, allowDeps, autoRemove bool, packageIDs ...string) error {
	return c.mutate(ctx, "RemovePackages", progress, packageIDs, packageIDs, allowDeps, autoRemove)
}

// UpdateSystem applies every pending update. progress may be nil.
func (c *Client) UpdateSystem(ctx context.Context, progress transaction.ProgressFunc) error {
	return c.mutate(ctx, "UpdateSystem", progress, nil)
}

// RefreshCache downloads fresh repository metadata. force refetches even
// when the daemon considers the cache current.
func (c *Client) RefreshCache(ctx context.Context, force bool) error {
	return c.mutate(ctx, "RefreshCache", nil, nil, force)
}

// RepoEnable enables or disables a repository.
func (c *Client) RepoEnable(ctx context.Context, repoID string, enabled bool) error {
	return c.mutate(ctx, "RepoEnable", nil, nil, repoID, enabled)
}

// RepoSetData changes a repository configuration parameter.
func (c *Client) RepoSetData(ctx context.Context, repoID, parameter, value string) error {
	return c.mutate(ctx, "RepoSetData", nil, nil, repoID, parameter, value)
}

// InstallSignatures imports a signing key used to validate packages.
func (c *Client) InstallSignatures(ctx context.Context, sigType, keyID, packageID string) error {
	return c.mutate(ctx, "InstallSignatures", nil, []string{packageID}, sigType, keyID, packageID)
}

// AcceptEula marks a license agreement as accepted.
func (c *Client) AcceptEula(ctx context.Context, eulaID string) error {
	return c.mutate(ctx, "AcceptEula", nil, nil, eulaID)
}

// Rollback reverts the system to the state before an old transaction ran.
// Only backends with transaction snapshots support it.
func (c *Client) Rollback(ctx context.Context, transactionID string) error {
	return c.mutate(ctx, "Rollback", nil, nil, transactionID)
}

// InstallFiles would install local package archives; no supported daemon
// backend implements it.
func (c *Client) InstallFiles(ctx context.Context, trusted bool, files ...string) error {
	return transaction.NotSupported("InstallFiles")
}

// SetLocale forwards code to a fresh transaction and remembers it for every
// later operation, so the daemon localizes summaries and error texts. An
// empty code clears the setting without touching the daemon.
func (c *Client) SetLocale(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		c.setLocale("")
		return nil
	}
	if err := validateLocale(code); err != nil {
		return err
	}
	handle, err := c.daemon.Transaction(ctx)
	if err != nil {
		return err
	}
	if err := handle.Call(ctx, "SetLocale", code); err != nil {
		return err
	}
	c.setLocale(code)
	return nil
}

// validateLocale checks the language[_territory] part of a POSIX locale
// code. Codeset and modifier suffixes ride along to the daemon verbatim.
func validateLocale(code string) error {
	base, _, _ := strings.Cut(code, ".")
	base, _, _ = strings.Cut(base, "@")
	if _, err := language.Parse(base); err != nil {
		return fmt.Errorf("parse locale %q: %w", code, err)
	}
	return nil
}

// SuggestDaemonQuit hints the daemon to exit once idle.
func (c *Client) SuggestDaemonQuit(ctx context.Context) error {
	return c.daemon.SuggestDaemonQuit(ctx)
}
