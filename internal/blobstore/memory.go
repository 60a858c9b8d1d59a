package blobstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements an in-memory blob store for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	now  func() time.Time
}

type memoryEntry struct {
	value     []byte
	createdAt time.Time
}

// NewMemoryStore creates a new in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

// Put stores a copy of data under id.
func (s *MemoryStore) Put(ctx context.Context, id string, data []byte) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[id] = memoryEntry{
		value:     append([]byte(nil), data...),
		createdAt: s.now(),
	}
	return nil
}

// Get returns a copy of the blob.
func (s *MemoryStore) Get(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

// Delete removes the blob.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// List returns every blob ordered by id.
func (s *MemoryStore) List(ctx context.Context) ([]BlobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]BlobInfo, 0, len(s.data))
	for id, entry := range s.data {
		infos = append(infos, BlobInfo{ID: id, Size: int64(len(entry.value)), CreatedAt: entry.createdAt})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
