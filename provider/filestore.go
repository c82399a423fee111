package provider

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/remotefiles/gateway-client-go/internal/filelock"
)

const lockTimeout = 5 * time.Second

// FileStore is a TokenStore backed by a JSON file. Access is guarded by
// a file lock so multiple processes can share the same store.
type FileStore struct {
	path string
}

// NewFileStore creates a store at dir/tokens.json, creating dir if
// needed. An empty dir selects the default config directory.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = DefaultConfigDir()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}
	return &FileStore{
		path: filepath.Join(dir, "tokens.json"),
	}, nil
}

// GetItem returns the stored value, or "" when absent.
func (s *FileStore) GetItem(key string) (string, error) {
	var value string
	err := s.withFile(func(items map[string]string) (bool, error) {
		value = items[key]
		return false, nil
	})
	return value, err
}

// SetItem stores the value under key.
func (s *FileStore) SetItem(key, value string) error {
	return s.withFile(func(items map[string]string) (bool, error) {
		items[key] = value
		return true, nil
	})
}

// RemoveItem deletes the value under key.
func (s *FileStore) RemoveItem(key string) error {
	return s.withFile(func(items map[string]string) (bool, error) {
		if _, ok := items[key]; !ok {
			return false, nil
		}
		delete(items, key)
		return true, nil
	})
}

// withFile runs fn against the decoded token map while holding the file
// lock, writing the map back when fn reports a change.
func (s *FileStore) withFile(fn func(items map[string]string) (bool, error)) error {
	lock := filelock.New(s.path)

	return lock.WithLock(lockTimeout, func() error {
		items := make(map[string]string)

		data, err := os.ReadFile(s.path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read token file: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("failed to parse token file: %w", err)
			}
		}

		changed, err := fn(items)
		if err != nil || !changed {
			return err
		}

		out, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal tokens: %w", err)
		}
		if err := os.WriteFile(s.path, out, 0600); err != nil {
			return fmt.Errorf("failed to write token file: %w", err)
		}
		return nil
	})
}

// DefaultConfigDir returns the base directory for persisted client
// state. GATEWAY_CLIENT_CONFIG_DIR overrides the default of
// ~/.gateway-client.
func DefaultConfigDir() string {
	if dir := os.Getenv("GATEWAY_CLIENT_CONFIG_DIR"); dir != "" {
		return dir
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir can't be determined
		return ".gateway-client"
	}

	return filepath.Join(homeDir, ".gateway-client")
}
