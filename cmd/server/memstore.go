package main

import (
	"context"
	"sync"

	"github.com/lifegame/life-server-go/internal/repository"
)

// memoryUserStore keeps accounts in process memory for the -no-db mode.
type memoryUserStore struct {
	mu    sync.RWMutex
	users map[string]repository.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[string]repository.User)}
}

func (s *memoryUserStore) Create(_ context.Context, u repository.User) error {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	return nil
}

func (s *memoryUserStore) GetByUsername(_ context.Context, username string) (repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (s *memoryUserStore) GetByID(_ context.Context, id string) (repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *memoryUserStore) UpdatePassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func (s *memoryUserStore) TouchLastSeen(_ context.Context, _ string) error { return nil }
