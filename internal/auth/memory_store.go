package auth

import (
	"context"
	"sync"
)

// MemoryRefreshTokenStore keeps refresh-token state in-memory. It is safe for
// concurrent use and primarily intended for development or single-instance
// deployments.
type MemoryRefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewMemoryRefreshTokenStore constructs an in-memory store implementation.
func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	return &MemoryRefreshTokenStore{tokens: make(map[string]string)}
}

// Set replaces the stored token for the identity unconditionally.
func (s *MemoryRefreshTokenStore) Set(_ context.Context, userID, token string) error {
	s.mu.Lock()
	s.tokens[userID] = token
	s.mu.Unlock()
	return nil
}

// Swap replaces the stored token only when it still equals previous. The check
// and the write happen under one lock, which is what makes rotation safe
// against concurrent refreshes.
func (s *MemoryRefreshTokenStore) Swap(_ context.Context, userID, previous, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tokens[userID]
	if !ok || current != previous {
		return ErrSessionRevoked
	}
	s.tokens[userID] = next
	return nil
}

// Clear removes the stored token for the identity.
func (s *MemoryRefreshTokenStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.tokens, userID)
	s.mu.Unlock()
	return nil
}

// Get returns the currently stored token. It exists for tests and health
// inspection; the session flows never read tokens outside Swap.
func (s *MemoryRefreshTokenStore) Get(userID string) (string, bool) {
	s.mu.Lock()
	token, ok := s.tokens[userID]
	s.mu.Unlock()
	return token, ok
}
