package keys

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// InMemoryStorage is a process-local key store (dev/tests).
type InMemoryStorage struct {
	mu   sync.RWMutex
	data map[string]KeyRecord
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{data: make(map[string]KeyRecord)}
}

func (s *InMemoryStorage) Save(_ context.Context, rec KeyRecord) error {
	if strings.TrimSpace(rec.KID) == "" {
		return errors.New("keystore: kid required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[rec.KID]; ok {
		return errors.New("keystore: kid already exists")
	}
	s.data[rec.KID] = rec
	return nil
}

func (s *InMemoryStorage) Get(_ context.Context, kid string) (KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[kid]
	if !ok {
		return KeyRecord{}, ErrKeyNotFound
	}
	return rec, nil
}
