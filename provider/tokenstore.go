package provider

import (
	"fmt"
	"sync"
)

// TokenStore persists opaque access tokens keyed by a namespaced string.
// A missing key is not an error; GetItem returns an empty token.
type TokenStore interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// TokenKey derives the storage key for a provider's access token. The
// namespace identifies the embedding application or plugin so multiple
// integrations can share a store without colliding.
func TokenKey(namespace, providerID string) string {
	return fmt.Sprintf("%s-%s-auth-token", namespace, providerID)
}

// MemoryStore is an in-memory TokenStore. It is the default store and is
// safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]string),
	}
}

// GetItem returns the stored value, or "" when absent.
func (s *MemoryStore) GetItem(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[key], nil
}

// SetItem stores the value under key.
func (s *MemoryStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

// RemoveItem deletes the value under key. Removing an absent key is a
// no-op.
func (s *MemoryStore) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
