package config

import (
	"os"
	"path/filepath"
)

// GetLastnedDir returns the application config directory, e.g. ~/.config/lastned.
func GetLastnedDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "lastned")
}

// GetStateDir holds the history database.
func GetStateDir() string {
	return filepath.Join(GetLastnedDir(), "state")
}

// GetLogsDir holds the daily log files.
func GetLogsDir() string {
	return filepath.Join(GetLastnedDir(), "logs")
}

// GetRuntimeDir holds the instance lock.
func GetRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "lastned")
	}
	return filepath.Join(GetLastnedDir(), "run")
}

// EnsureDirs creates every directory the application writes to.
func EnsureDirs() error {
	for _, dir := range []string{GetLastnedDir(), GetStateDir(), GetLogsDir(), GetRuntimeDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
