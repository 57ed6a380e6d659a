package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"streamvault/internal/fileutil"
)

// SessionLock is the durable per-channel marker for one live capture.
type SessionLock struct {
	Login      string    `json:"login"`
	PID        int       `json:"pid"`
	OutputPath string    `json:"outputPath"`
	StartedAt  time.Time `json:"startedAt"`
}

func lockPath(dir, login string) string {
	return filepath.Join(dir, login+".json")
}

// clearLockDir removes every entry in the lock directory, creating it first
// if needed. No lock can legitimately survive an agent restart.
func clearLockDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read lock directory: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("remove stale lock %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// writeLock atomically persists the lock for one live session.
func writeLock(dir string, lock SessionLock) error {
	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session lock: %w", err)
	}
	return fileutil.WriteFileAtomic(lockPath(dir, lock.Login), append(data, '\n'), 0o644)
}

// removeLock drops the lock for a reaped session. A missing file is fine.
func removeLock(dir, login string) error {
	err := os.Remove(lockPath(dir, login))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session lock: %w", err)
	}
	return nil
}
