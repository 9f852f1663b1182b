package persist

import "sync"

// Store is the interface for saving and loading snapshot blobs. Keys are
// opaque strings; the web build backs this with localStorage, tests and the
// headless demo with memory.
type Store interface {
	Put(key string, data []byte) error
	Get(key string) ([]byte, bool, error)
	Delete(key string) error
}

// MemoryStore is an in-memory implementation of the Store interface.
type MemoryStore struct {
	blobs map[string][]byte
	mutex sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
	}
}

// Put saves a blob under the key.
func (s *MemoryStore) Put(key string, data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Copy so callers can't mutate what's stored.
	blob := make([]byte, len(data))
	copy(blob, data)
	s.blobs[key] = blob
	return nil
}

// Get retrieves the blob for the key, reporting whether it exists.
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	blob, exists := s.blobs[key]
	if !exists {
		return nil, false, nil
	}
	result := make([]byte, len(blob))
	copy(result, blob)
	return result, true, nil
}

// Delete removes the blob for the key. Missing keys are not an error.
func (s *MemoryStore) Delete(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.blobs, key)
	return nil
}
