package filelock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	lock := New(path)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := lock.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Errorf("Expected lock file to exist: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Error("Expected lock file to be removed")
	}

	// Releasing again is a no-op
	if err := lock.Release(); err != nil {
		t.Errorf("Second Release should not error: %v", err)
	}
}

func TestContendedLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	first := New(path)
	second := New(path)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := first.Acquire(ctx); err != nil {
		t.Fatalf("First Acquire failed: %v", err)
	}

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shortCancel()

	if err := second.Acquire(shortCtx); err == nil {
		t.Error("Expected second Acquire to give up while lock is held")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	if err := second.Acquire(ctx); err != nil {
		t.Errorf("Second Acquire should succeed after release: %v", err)
	}
	_ = second.Release()
}

func TestWithLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	lock := New(path)

	ran := false
	err := lock.WithLock(time.Second, func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock failed: %v", err)
	}
	if !ran {
		t.Error("Expected function to run")
	}

	// Lock must be released even after fn returns an error
	err = lock.WithLock(time.Second, func() error {
		return os.ErrInvalid
	})
	if err != os.ErrInvalid {
		t.Errorf("Expected fn error to propagate, got %v", err)
	}

	if err := lock.WithLock(time.Second, func() error { return nil }); err != nil {
		t.Errorf("Lock should be reusable: %v", err)
	}
}
