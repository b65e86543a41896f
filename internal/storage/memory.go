package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory ObjectStore used by stage and handler
// tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func objectName(bucket, key string) string {
	return bucket + "/" + key
}

// Fetch returns a copy of the stored object or ErrNotFound.
func (s *MemoryStore) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[objectName(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("fetch %s/%s: %w", bucket, key, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Store records the object, overwriting any previous content.
func (s *MemoryStore) Store(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[objectName(bucket, key)] = stored
	s.types[objectName(bucket, key)] = contentType
	return nil
}

// EnsureBucket is a no-op for the in-memory store.
func (s *MemoryStore) EnsureBucket(ctx context.Context, bucket string) error {
	return nil
}

// ContentType reports the content type recorded for an object, for test
// assertions.
func (s *MemoryStore) ContentType(bucket, key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.types[objectName(bucket, key)]
}
