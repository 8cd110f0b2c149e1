package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"cliptide/internal/models"
)

type stubCredentialSource struct {
	users map[string]models.User
}

func newStubCredentialSource(t *testing.T, users ...models.User) *stubCredentialSource {
	t.Helper()
	source := &stubCredentialSource{users: make(map[string]models.User)}
	for _, user := range users {
		source.users[user.ID] = user
	}
	return source
}

func (s *stubCredentialSource) GetUser(id string) (models.User, bool) {
	user, ok := s.users[id]
	return user, ok
}

func (s *stubCredentialSource) FindUserByLogin(usernameOrEmail string) (models.User, bool) {
	for _, user := range s.users {
		if user.Username == usernameOrEmail || user.Email == usernameOrEmail {
			return user, true
		}
	}
	return models.User{}, false
}

func (s *stubCredentialSource) SetUserPassword(id, password string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = hash
	s.users[id] = user
	return user, nil
}

func newTestSessionManager(t *testing.T) (*SessionManager, *MemoryRefreshTokenStore, models.User) {
	t.Helper()
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	user := models.User{
		ID:           "user-1",
		Username:     "maria",
		Email:        "maria@example.com",
		FullName:     "Maria Keys",
		PasswordHash: hash,
	}
	issuer := testIssuer(t, time.Minute, time.Hour)
	store := NewMemoryRefreshTokenStore()
	manager := NewSessionManager(newStubCredentialSource(t, user), issuer, WithRefreshTokenStore(store))
	return manager, store, user
}

func TestLoginIssuesPairAndStoresRefreshToken(t *testing.T) {
	manager, store, user := newTestSessionManager(t)
	ctx := context.Background()

	pair, sanitized, err := manager.Login(ctx, "maria", "correct horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if sanitized.PasswordHash != "" || sanitized.RefreshToken != "" {
		t.Fatal("login response must not carry secret material")
	}
	stored, ok := store.Get(user.ID)
	if !ok || stored != pair.RefreshToken {
		t.Fatal("stored refresh token does not match the issued one")
	}

	// Email works as the login identifier too.
	if _, _, err := manager.Login(ctx, "maria@example.com", "correct horse"); err != nil {
		t.Fatalf("login by email returned error: %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	manager, _, _ := newTestSessionManager(t)
	ctx := context.Background()

	if _, _, err := manager.Login(ctx, "nobody", "correct horse"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, _, err := manager.Login(ctx, "maria", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginSupersedesPriorSession(t *testing.T) {
	manager, _, _ := newTestSessionManager(t)
	ctx := context.Background()

	first, _, err := manager.Login(ctx, "maria", "correct horse")
	if err != nil {
		t.Fatalf("first login returned error: %v", err)
	}
	if _, _, err := manager.Login(ctx, "maria", "correct horse"); err != nil {
		t.Fatalf("second login returned error: %v", err)
	}
	if _, err := manager.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked for the superseded token, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	manager, store, user := newTestSessionManager(t)
	ctx := context.Background()

	first, _, err := manager.Login(ctx, "maria", "correct horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	second, err := manager.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh must rotate the refresh token")
	}
	if stored, _ := store.Get(user.ID); stored != second.RefreshToken {
		t.Fatal("stored token was not rotated")
	}

	// The consumed token is dead; replaying it must not disturb the stored
	// state.
	if _, err := manager.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked on replay, got %v", err)
	}
	if stored, _ := store.Get(user.ID); stored != second.RefreshToken {
		t.Fatal("failed replay must leave the stored token untouched")
	}

	// The current token keeps working.
	if _, err := manager.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("refresh with the current token returned error: %v", err)
	}
}

func TestRefreshRejectsMissingOrForeignToken(t *testing.T) {
	manager, _, _ := newTestSessionManager(t)
	ctx := context.Background()

	if _, err := manager.Refresh(ctx, ""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if _, err := manager.Refresh(ctx, "junk"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	// A well-signed token for an identity with no stored session fails closed.
	foreign, err := manager.Issuer().IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("IssueRefreshToken returned error: %v", err)
	}
	if _, err := manager.Refresh(ctx, foreign); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	manager, store, user := newTestSessionManager(t)
	ctx := context.Background()

	pair, _, err := manager.Login(ctx, "maria", "correct horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if err := manager.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, ok := store.Get(user.ID); ok {
		t.Fatal("logout must clear the stored token")
	}
	if _, err := manager.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked after logout, got %v", err)
	}

	// Logging out twice is harmless.
	if err := manager.Logout(ctx, user.ID); err != nil {
		t.Fatalf("repeated Logout returned error: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	manager, _, user := newTestSessionManager(t)
	ctx := context.Background()

	pair, _, err := manager.Login(ctx, "maria", "correct horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if err := manager.ChangePassword(ctx, user.ID, "wrong", "next pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := manager.ChangePassword(ctx, "ghost", "correct horse", "next pass"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := manager.ChangePassword(ctx, user.ID, "correct horse", "next pass"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	// The existing session survives a password change.
	if _, err := manager.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh after password change returned error: %v", err)
	}

	if _, _, err := manager.Login(ctx, "maria", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, _, err := manager.Login(ctx, "maria", "next pass"); err != nil {
		t.Fatalf("login with the new password returned error: %v", err)
	}
}
