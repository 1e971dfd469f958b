package tokenstore

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu    sync.RWMutex
	token string
	set   bool
}

// NewMemoryStore returns a process-local store. It does not survive restarts.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = token, true
	return nil
}

func (s *memoryStore) Get(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.set, nil
}

func (s *memoryStore) Remove(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = "", false
	return nil
}
