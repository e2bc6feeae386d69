package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// WatchLockFile is the lock file name inside the state directory
const WatchLockFile = "watch.lock"

// ErrWatchLockHeld is returned when a live watcher already holds the lock
var ErrWatchLockHeld = errors.New("watch lock is held")

// WatchLock is the content of the lock file written by a running watcher.
// Other commands read it to find the watcher's PID.
type WatchLock struct {
	Holder    string    `json:"holder"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
	Version   string    `json:"version"`
}

// AcquireWatchLock writes the lock file into dir for the current process.
// A lock left behind by a dead process is overwritten.
// Returns the lock file path for ReleaseWatchLock.
func AcquireWatchLock(dir, version string) (lockPath string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}

	lockPath = filepath.Join(dir, WatchLockFile)

	existing, err := ReadWatchLock(dir)
	if err == nil && IsProcessAlive(existing.PID, existing.Hostname) {
		return "", fmt.Errorf("%w: watcher already running (PID %d on %s, started %s)",
			ErrWatchLockHeld, existing.PID, existing.Hostname, existing.StartedAt.Format(time.RFC3339))
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	lock := WatchLock{
		Holder:    "webcheck-watch",
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		Version:   version,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}

	if err := os.WriteFile(lockPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to create watch lock: %w", err)
	}

	return lockPath, nil
}

// ReadWatchLock reads the lock file in dir.
// The error wraps os.ErrNotExist when no watcher has written one.
func ReadWatchLock(dir string) (*WatchLock, error) {
	data, err := os.ReadFile(filepath.Join(dir, WatchLockFile))
	if err != nil {
		return nil, err
	}

	var lock WatchLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("corrupt watch lock: %w", err)
	}
	return &lock, nil
}

// ReleaseWatchLock removes the lock file. Use defer after acquiring.
func ReleaseWatchLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove watch lock: %w", err)
	}

	return nil
}

// IsProcessAlive checks if a process with the given PID exists on the given hostname.
// Processes on other hosts cannot be checked and are assumed alive.
func IsProcessAlive(pid int, hostname string) bool {
	if pid <= 0 {
		return false
	}

	currentHost, err := os.Hostname()
	if err != nil {
		return true
	}

	if !strings.EqualFold(hostname, currentHost) {
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 only checks for existence
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	// EPERM: the process exists but belongs to someone else
	if errors.Is(err, syscall.EPERM) {
		return true
	}

	return false
}
