package storage

import (
	"context"
	"fmt"
	"time"

	"cliptide/internal/auth"
)

// SetRefreshToken stores the refresh token on the identity record,
// overwriting any previous value.
func (s *Storage) SetRefreshToken(ctx context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	user.RefreshToken = token
	user.UpdatedAt = time.Now().UTC()
	updatedData.Users[userID] = user
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData
	return nil
}

// SwapRefreshToken replaces the stored refresh token only when it still
// equals previous. The compare and the write happen under the store lock, so
// concurrent rotations of the same superseded token cannot both succeed.
func (s *Storage) SwapRefreshToken(ctx context.Context, userID, previous, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[userID]
	if !ok || user.RefreshToken == "" || user.RefreshToken != previous {
		return auth.ErrSessionRevoked
	}

	user.RefreshToken = next
	user.UpdatedAt = time.Now().UTC()
	updatedData.Users[userID] = user
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData
	return nil
}

// ClearRefreshToken removes the stored refresh token. Clearing an identity
// with no active session is a no-op.
func (s *Storage) ClearRefreshToken(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[userID]
	if !ok || user.RefreshToken == "" {
		return nil
	}

	updatedData := cloneDataset(s.data)
	user = updatedData.Users[userID]
	user.RefreshToken = ""
	user.UpdatedAt = time.Now().UTC()
	updatedData.Users[userID] = user
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData
	return nil
}

// refreshTokenStore adapts Storage to the session manager's store interface.
type refreshTokenStore struct {
	storage *Storage
}

func (r refreshTokenStore) Set(ctx context.Context, userID, token string) error {
	return r.storage.SetRefreshToken(ctx, userID, token)
}

func (r refreshTokenStore) Swap(ctx context.Context, userID, previous, next string) error {
	return r.storage.SwapRefreshToken(ctx, userID, previous, next)
}

func (r refreshTokenStore) Clear(ctx context.Context, userID string) error {
	return r.storage.ClearRefreshToken(ctx, userID)
}

// RefreshTokens exposes the identity-record refresh-token field as a session
// store. Deployments running multiple replicas point the session manager at
// the Postgres store instead.
func (s *Storage) RefreshTokens() auth.RefreshTokenStore {
	return refreshTokenStore{storage: s}
}

var _ auth.RefreshTokenStore = refreshTokenStore{}
var _ auth.CredentialSource = (*Storage)(nil)
