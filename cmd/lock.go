package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/lastned/lastned/internal/config"
)

var instanceLock *flock.Flock

func lockPath() string {
	return filepath.Join(config.GetRuntimeDir(), "lastned.lock")
}

// AcquireLock takes the machine-wide batch lock without blocking.
// It returns false when another instance already holds it.
func AcquireLock() (bool, error) {
	if err := os.MkdirAll(config.GetRuntimeDir(), 0755); err != nil {
		return false, fmt.Errorf("failed to create runtime dir: %w", err)
	}

	fileLock := flock.New(lockPath())
	locked, err := fileLock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return false, nil
	}
	instanceLock = fileLock
	return true, nil
}

// ReleaseLock releases the lock taken by AcquireLock.
func ReleaseLock() error {
	if instanceLock == nil {
		return nil
	}
	err := instanceLock.Unlock()
	instanceLock = nil
	return err
}
