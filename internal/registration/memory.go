package registration

import (
	"context"
	"sort"
	"sync"
)

// InMemoryPendingStore is a process-local pending-registration store
// (single-node dev and tests).
type InMemoryPendingStore struct {
	mu   sync.Mutex
	data map[string]PendingRegistration
}

func NewInMemoryPendingStore() *InMemoryPendingStore {
	return &InMemoryPendingStore{data: make(map[string]PendingRegistration)}
}

func (s *InMemoryPendingStore) Set(_ context.Context, reg PendingRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[reg.ConfigurationEndpoint] = reg
	return nil
}

func (s *InMemoryPendingStore) Consume(_ context.Context, endpoint string) (PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.data[endpoint]
	if !ok {
		return PendingRegistration{}, ErrPendingNotFound
	}
	delete(s.data, endpoint)
	return reg, nil
}

// InMemoryPlatformStore is a process-local platform store. The mutex makes
// Put's duplicate check atomic in-process; cross-process deployments should
// use the SQL store.
type InMemoryPlatformStore struct {
	mu   sync.RWMutex
	data map[string]PlatformRecord // key: platformURL + "\x00" + clientID
}

func NewInMemoryPlatformStore() *InMemoryPlatformStore {
	return &InMemoryPlatformStore{data: make(map[string]PlatformRecord)}
}

func platformKey(platformURL, clientID string) string {
	return platformURL + "\x00" + clientID
}

func (s *InMemoryPlatformStore) Exists(_ context.Context, platformURL, clientID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[platformKey(platformURL, clientID)]
	return ok, nil
}

func (s *InMemoryPlatformStore) Put(_ context.Context, rec PlatformRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := platformKey(rec.PlatformURL, rec.ClientID)
	if _, ok := s.data[k]; ok {
		return ErrDuplicate
	}
	s.data[k] = rec
	return nil
}

func (s *InMemoryPlatformStore) Get(_ context.Context, platformURL, clientID string) (PlatformRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[platformKey(platformURL, clientID)]
	if !ok {
		return PlatformRecord{}, ErrPlatformNotFound
	}
	return rec, nil
}

func (s *InMemoryPlatformStore) List(_ context.Context, offset, limit int) ([]PlatformRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]PlatformRecord, 0, len(s.data))
	for _, rec := range s.data {
		all = append(all, rec)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].PlatformURL != all[j].PlatformURL {
			return all[i].PlatformURL < all[j].PlatformURL
		}
		return all[i].ClientID < all[j].ClientID
	})
	if offset >= len(all) {
		return []PlatformRecord{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
