package persist

import (
	"context"
	"sync"
)

// MemoryStore keeps persisted operations in process memory. It backs the
// "memory" persist kind and doubles as the test store.
type MemoryStore struct {
	mu  sync.RWMutex
	ops map[string]memoryEntry
}

type memoryEntry struct {
	name string
	text string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: make(map[string]memoryEntry)}
}

// Put stores text under id.
func (s *MemoryStore) Put(ctx context.Context, id, name, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops[id] = memoryEntry{name: name, text: text}
	return nil
}

// Get returns the text stored under id.
func (s *MemoryStore) Get(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.ops[id]
	return entry.text, ok
}

// Len returns the number of stored operations.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ops)
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
