package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a map-backed Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("snapshot %q: %w", key, ErrNotFound)
	}
	r.Value = append([]byte(nil), r.Value...)
	return &r, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	r := Record{
		Key:       key,
		Value:     append([]byte(nil), value...),
		Size:      len(value),
		Revision:  newRevision(now),
		Version:   s.records[key].Version + 1,
		UpdatedAt: now,
	}
	s.records[key] = r
	out := r
	return &out, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("snapshot %q: %w", key, ErrNotFound)
	}
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for k, r := range s.records {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		r.Value = nil
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
