// Package filelock provides file-based locking so multiple processes
// sharing a token file do not interleave reads and writes.
package filelock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

const retryInterval = 10 * time.Millisecond

// FileLock guards a file path with a sibling ".lock" file created
// exclusively. The lock is advisory and cooperative.
type FileLock struct {
	path     string
	file     *os.File
	acquired bool
	mu       sync.Mutex
}

// New creates a lock for the given path.
func New(path string) *FileLock {
	return &FileLock{
		path: path + ".lock",
	}
}

// Acquire takes the lock, retrying until ctx is done.
func (fl *FileLock) Acquire(ctx context.Context) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.acquired {
		return fmt.Errorf("lock already acquired")
	}

	for {
		file, err := os.OpenFile(fl.path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
		if err == nil {
			fl.file = file
			fl.acquired = true
			return nil
		}

		if !os.IsExist(err) {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}

		// Held by someone else, wait and retry
		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up acquiring lock: %w", ctx.Err())
		case <-time.After(retryInterval):
		}
	}
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (fl *FileLock) Release() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if !fl.acquired {
		return nil
	}

	var err error
	if fl.file != nil {
		err = fl.file.Close()
		fl.file = nil
	}

	if removeErr := os.Remove(fl.path); removeErr != nil && !os.IsNotExist(removeErr) {
		if err == nil {
			err = fmt.Errorf("failed to remove lock file: %w", removeErr)
		}
	}

	fl.acquired = false
	return err
}

// WithLock executes fn while holding the lock, bounded by timeout.
func (fl *FileLock) WithLock(timeout time.Duration, fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := fl.Acquire(ctx); err != nil {
		return err
	}
	defer func() { _ = fl.Release() }()

	return fn()
}
