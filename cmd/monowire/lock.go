package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// acquireDataLock acquires an exclusive lock on the data directory
// Returns the lock file handle (must be kept open) or error if already locked
func acquireDataLock(dataDir string) (*os.File, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	lockPath := filepath.Join(dataDir, ".lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	// Try to acquire exclusive lock (non-blocking)
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("another monowire instance is using data directory %s", dataDir)
	}

	return f, nil
}
