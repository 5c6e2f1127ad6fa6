package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitCreatesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, newRootCommand(), "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCommand(t, newRootCommand(), "config", "init", "--path", target); err == nil {
		t.Fatal("expected an error when the file already exists")
	}

	if _, err := runCommand(t, newRootCommand(), "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, newRootCommand(), "--config", configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+configPath)
	requireContains(t, out, "Authorization: disabled")
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsBrokenConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nformat = \"yaml\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := runCommand(t, newRootCommand(), "--config", configPath, "config", "validate")
	if err == nil {
		t.Fatal("expected validation to fail for an unsupported log format")
	}
}
