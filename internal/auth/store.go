package auth

import "sync"

// Store is durable key-value storage for the session entries.
// Put and Delete must apply all given keys in one write.
type Store interface {
	Get(key string) (string, bool, error)
	Put(entries map[string]string) error
	Delete(keys ...string) error
}

// MemoryStore keeps entries in process memory only.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *MemoryStore) Put(entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		s.entries[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}
