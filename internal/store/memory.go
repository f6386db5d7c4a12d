package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store with the same OCC semantics as the
// Redis implementation. It backs tests and degraded operation when the
// external store is unreachable.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	versions map[string]uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string][]byte),
		versions: make(map[string]uint64),
	}
}

// GetJSON loads and unmarshals the value at key.
func (s *MemoryStore) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	data, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// PutJSON marshals and stores v at key.
func (s *MemoryStore) PutJSON(_ context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	s.mu.Lock()
	s.data[key] = data
	s.versions[key]++
	s.mu.Unlock()
	return nil
}

// UpdateJSON performs a versioned read-modify-write with bounded retries.
func (s *MemoryStore) UpdateJSON(ctx context.Context, key string, dest interface{}, apply func() error) error {
	for attempt := 0; attempt < updateMaxRetries; attempt++ {
		resetDest(dest)

		s.mu.Lock()
		data, ok := s.data[key]
		version := s.versions[key]
		s.mu.Unlock()

		if ok {
			if err := json.Unmarshal(data, dest); err != nil {
				return fmt.Errorf("failed to unmarshal %s: %w", key, err)
			}
		}

		if err := apply(); err != nil {
			return err
		}

		out, err := json.Marshal(dest)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", key, err)
		}

		s.mu.Lock()
		if s.versions[key] != version {
			s.mu.Unlock()
			continue // concurrent writer, re-read and retry
		}
		s.data[key] = out
		s.versions[key]++
		s.mu.Unlock()
		return nil
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrConflict, key, updateMaxRetries)
}
