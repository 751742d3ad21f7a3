package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// CacheLock is a cross-process lock over one cache directory. Builds hold it
// so two processes never write the same artifacts concurrently.
type CacheLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewCacheLock creates a lock at <dir>/.build.lock.
func NewCacheLock(dir string) *CacheLock {
	lockPath := filepath.Join(dir, ".build.lock")
	return &CacheLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock blocks until the lock is acquired.
func (l *CacheLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
// Returns false if another process holds it.
func (l *CacheLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call when not locked.
func (l *CacheLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *CacheLock) Path() string {
	return l.path
}
