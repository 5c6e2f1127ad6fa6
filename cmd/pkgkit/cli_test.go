package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"pkgkit/internal/history"
)

func TestResolveCommandRendersTable(t *testing.T) {
	daemon := &fakeDaemon{handles: []*fakeHandle{{
		signals: []*dbus.Signal{
			packageSignal(false, "vim;9.0;x86_64;fedora", "Vi Improved"),
			finishedOK(),
		},
	}}}
	ctx := newTestContext(t, daemon)

	out, err := runCommand(t, newResolveCommand(ctx), "vim")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, out, "vim")
	requireContains(t, out, "9.0")
	requireContains(t, out, "fedora")
	requireContains(t, out, "Vi Improved")
}

func TestResolveCommandWithoutMatches(t *testing.T) {
	daemon := &fakeDaemon{handles: []*fakeHandle{{
		signals: []*dbus.Signal{finishedOK()},
	}}}
	ctx := newTestContext(t, daemon)

	out, err := runCommand(t, newResolveCommand(ctx), "no-such-thing")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, out, "No packages found")
}

func TestInstallCommandResolvesNamesFirst(t *testing.T) {
	resolveHandle := &fakeHandle{signals: []*dbus.Signal{
		packageSignal(false, "vim;9.0;x86_64;fedora", ""),
		finishedOK(),
	}}
	installHandle := &fakeHandle{signals: []*dbus.Signal{finishedOK()}}
	daemon := &fakeDaemon{handles: []*fakeHandle{resolveHandle, installHandle}}
	ctx := newTestContext(t, daemon)

	out, err := runCommand(t, newInstallCommand(ctx), "vim")
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	requireContains(t, out, "Installed 1 packages")

	if len(installHandle.calls) != 1 || installHandle.calls[0].member != "InstallPackages" {
		t.Fatalf("unexpected install calls: %+v", installHandle.calls)
	}
	ids, ok := installHandle.calls[0].args[0].([]string)
	if !ok || len(ids) != 1 || ids[0] != "vim;9.0;x86_64;fedora" {
		t.Fatalf("unexpected install args: %+v", installHandle.calls[0].args)
	}
}

func TestInstallCommandSkipsResolveForIDs(t *testing.T) {
	installHandle := &fakeHandle{signals: []*dbus.Signal{finishedOK()}}
	daemon := &fakeDaemon{handles: []*fakeHandle{installHandle}}
	ctx := newTestContext(t, daemon)

	if _, err := runCommand(t, newInstallCommand(ctx), "vim;9.0;x86_64;fedora"); err != nil {
		t.Fatalf("install: %v", err)
	}
	if len(installHandle.calls) != 1 || installHandle.calls[0].member != "InstallPackages" {
		t.Fatalf("expected a single InstallPackages call, got %+v", installHandle.calls)
	}
}

func TestRemoveCommandWiresFlags(t *testing.T) {
	resolveHandle := &fakeHandle{signals: []*dbus.Signal{
		packageSignal(true, "vim;8.0;x86_64;installed", ""),
		finishedOK(),
	}}
	removeHandle := &fakeHandle{signals: []*dbus.Signal{finishedOK()}}
	daemon := &fakeDaemon{handles: []*fakeHandle{resolveHandle, removeHandle}}
	ctx := newTestContext(t, daemon)

	out, err := runCommand(t, newRemoveCommand(ctx), "vim", "--allow-deps")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	requireContains(t, out, "Removed 1 packages")

	call := removeHandle.calls[0]
	if call.member != "RemovePackages" {
		t.Fatalf("unexpected member %q", call.member)
	}
	ids := call.args[0].([]string)
	if ids[0] != "vim;8.0;x86_64;installed" {
		t.Fatalf("expected the installed package to be removed, got %q", ids[0])
	}
	if allowDeps := call.args[1].(bool); !allowDeps {
		t.Fatal("expected --allow-deps to reach the wire")
	}
	if autoRemove := call.args[2].(bool); !autoRemove {
		t.Fatal("expected auto-remove to default on")
	}
}

func TestWhatProvidesCommandWiresArgs(t *testing.T) {
	handle := &fakeHandle{signals: []*dbus.Signal{finishedOK()}}
	daemon := &fakeDaemon{handles: []*fakeHandle{handle}}
	ctx := newTestContext(t, daemon)

	if _, err := runCommand(t, newWhatProvidesCommand(ctx), "codec", "audio/x-mp3"); err != nil {
		t.Fatalf("what-provides: %v", err)
	}
	call := handle.calls[0]
	if call.member != "WhatProvides" {
		t.Fatalf("unexpected member %q", call.member)
	}
	if call.args[0] != any("codec") || call.args[1] != any("audio/x-mp3") {
		t.Fatalf("unexpected args: %+v", call.args)
	}
}

func TestRepoListCommandRendersRepos(t *testing.T) {
	daemon := &fakeDaemon{handles: []*fakeHandle{{
		signals: []*dbus.Signal{
			sig("RepoDetail", "fedora", "Fedora 40 - x86_64", true),
			sig("RepoDetail", "rawhide", "Fedora Rawhide", false),
			finishedOK(),
		},
	}}}
	ctx := newTestContext(t, daemon)

	out, err := runCommand(t, newRepoListCommand(ctx))
	if err != nil {
		t.Fatalf("repo list: %v", err)
	}
	requireContains(t, out, "fedora")
	requireContains(t, out, "yes")
	requireContains(t, out, "rawhide")
	requireContains(t, out, "no")
}

func TestDaemonQuitCommand(t *testing.T) {
	daemon := &fakeDaemon{}
	ctx := newTestContext(t, daemon)

	out, err := runCommand(t, newDaemonQuitCommand(ctx))
	if err != nil {
		t.Fatalf("daemon-quit: %v", err)
	}
	requireContains(t, out, "Daemon asked to exit")
	if daemon.quits != 1 {
		t.Fatalf("expected one quit suggestion, got %d", daemon.quits)
	}
}

func TestHistoryCommandReadsLocalJournal(t *testing.T) {
	dir := t.TempDir()
	historyDir := filepath.Join(dir, "history")

	store, err := history.Open(historyDir)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	_, err = store.Record(context.Background(), history.Entry{
		RequestID:  "req-1",
		Role:       "InstallPackages",
		PackageIDs: []string{"vim;9.0;x86_64;fedora"},
		Succeeded:  true,
		StartedAt:  time.Now(),
		Duration:   1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	configPath := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf("[history]\nenabled = true\ndir = %q\n", historyDir)
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx := newCommandContext(&configPath)
	out, err := runCommand(t, newHistoryCommand(ctx))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "InstallPackages")
	requireContains(t, out, "vim")
	requireContains(t, out, "ok")
}

func TestHistoryCommandWhenDisabled(t *testing.T) {
	ctx := newTestContext(t, &fakeDaemon{})
	_, err := runCommand(t, newHistoryCommand(ctx))
	if err == nil {
		t.Fatal("expected an error when history is disabled")
	}
	requireContains(t, err.Error(), "history is disabled")
}
