// Package storage persists the refresh token between SDK runs.
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when no token is stored under the key.
var ErrNotFound = errors.New("token not found")

// TokenStore persists refresh tokens by key.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, token string) error
	// Delete removes the token. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

var _ TokenStore = (*MemoryStore)(nil)

// MemoryStore keeps tokens for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[key]
	if !ok {
		return "", ErrNotFound
	}
	return token, nil
}

func (s *MemoryStore) Set(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key] = token
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, key)
	return nil
}
