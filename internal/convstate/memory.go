package convstate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store used in tests and when running without
// Redis. State does not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64]memoryEntry)}
}

func (s *MemoryStore) Set(_ context.Context, chatID int64, state State, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[chatID] = memoryEntry{state: state, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[chatID]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.entries, chatID)
		return Idle, nil
	}
	return entry.state, nil
}

func (s *MemoryStore) Clear(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, chatID)
	return nil
}
