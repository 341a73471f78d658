package access

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Store answers whether a chat is allowed to use the bot.
type Store interface {
	Allowed(chatID int64) bool
	Add(chatID int64) error
}

// FileStore keeps the allow-list as a JSON array of chat ids on disk. The
// file is read once at startup; Add rewrites it in place.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	allowed map[int64]struct{}
}

// NewFileStore loads the allow-list from path. A missing file yields an
// empty list rather than an error so a fresh deployment starts closed.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, allowed: make(map[int64]struct{})}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read allow-list %s: %w", path, err)
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("parse allow-list %s: %w", path, err)
	}
	for _, id := range ids {
		s.allowed[id] = struct{}{}
	}
	return s, nil
}

func (s *FileStore) Allowed(chatID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.allowed[chatID]
	return ok
}

// Add grants access to a chat and persists the updated list.
func (s *FileStore) Add(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.allowed[chatID]; ok {
		return nil
	}
	s.allowed[chatID] = struct{}{}

	ids := make([]int64, 0, len(s.allowed))
	for id := range s.allowed {
		ids = append(ids, id)
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode allow-list: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write allow-list %s: %w", s.path, err)
	}
	return nil
}

// OpenStore allows every chat. Used when no allow-list path is configured.
type OpenStore struct{}

func (OpenStore) Allowed(int64) bool { return true }
func (OpenStore) Add(int64) error    { return nil }
