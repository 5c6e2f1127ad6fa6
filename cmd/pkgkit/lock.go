package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"pkgkit/internal/config"
)

// acquireOperationLock takes the exclusive lock guarding mutating operations
// so concurrent pkgkit invocations queue up instead of interleaving. The
// returned release func must be called once the operation completes.
func acquireOperationLock(cfg *config.Config) (func(), error) {
	path := lockPath(cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire operation lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another pkgkit operation is already running")
	}
	return func() { _ = lock.Unlock() }, nil
}

func lockPath(cfg *config.Config) string {
	if cfg != nil && strings.TrimSpace(cfg.History.Dir) != "" {
		return filepath.Join(cfg.History.Dir, "pkgkit.lock")
	}
	return filepath.Join(os.TempDir(), "pkgkit.lock")
}
