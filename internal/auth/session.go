package auth

import (
	"context"
	"fmt"

	"cliptide/internal/models"
)

// RefreshTokenStore persists the single active refresh token per identity.
// Swap must apply the replacement atomically: it succeeds only when the value
// being replaced still matches what the caller presented, otherwise it fails
// with ErrSessionRevoked and leaves the stored value untouched. Without this,
// two concurrent refreshes of an already-superseded token could both appear to
// succeed.
type RefreshTokenStore interface {
	Set(ctx context.Context, userID, token string) error
	Swap(ctx context.Context, userID, previous, next string) error
	Clear(ctx context.Context, userID string) error
}

// CredentialSource exposes the identity lookups the session flows need. It is
// satisfied by the storage repository.
type CredentialSource interface {
	GetUser(id string) (models.User, bool)
	FindUserByLogin(usernameOrEmail string) (models.User, bool)
	SetUserPassword(id, password string) (models.User, error)
}

// TokenPair bundles the credentials returned by login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionManager orchestrates login, refresh, logout, and password changes.
// It is the only component that mutates the persisted refresh-token state, so
// the single-active-session invariant lives entirely here.
type SessionManager struct {
	users  CredentialSource
	issuer *TokenIssuer
	store  RefreshTokenStore
}

// SessionOption configures a SessionManager instance.
type SessionOption func(*SessionManager)

// WithRefreshTokenStore injects a custom RefreshTokenStore implementation.
func WithRefreshTokenStore(store RefreshTokenStore) SessionOption {
	return func(m *SessionManager) {
		if store != nil {
			m.store = store
		}
	}
}

// NewSessionManager constructs a SessionManager. The store defaults to the
// in-memory implementation for local development when none is supplied.
func NewSessionManager(users CredentialSource, issuer *TokenIssuer, opts ...SessionOption) *SessionManager {
	manager := &SessionManager{
		users:  users,
		issuer: issuer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(manager)
		}
	}
	if manager.store == nil {
		manager.store = NewMemoryRefreshTokenStore()
	}
	return manager
}

// Issuer exposes the token issuer for request authentication.
func (m *SessionManager) Issuer() *TokenIssuer { return m.issuer }

// Login verifies the password for the identity matching the username or email
// and issues a fresh token pair. The new refresh token overwrites whatever was
// stored before, so any prior session for this identity ends here.
func (m *SessionManager) Login(ctx context.Context, usernameOrEmail, password string) (TokenPair, models.User, error) {
	if usernameOrEmail == "" {
		return TokenPair{}, models.User{}, fmt.Errorf("username or email required")
	}
	user, ok := m.users.FindUserByLogin(usernameOrEmail)
	if !ok {
		return TokenPair{}, models.User{}, ErrUserNotFound
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, models.User{}, ErrInvalidCredentials
	}
	pair, err := m.issuePair(ctx, user, true)
	if err != nil {
		return TokenPair{}, models.User{}, err
	}
	return pair, user.Sanitized(), nil
}

// Refresh validates the presented refresh token and rotates it. The presented
// value must match the stored one byte for byte; any mismatch means the token
// was already rotated or the session ended, and the call fails closed with
// ErrSessionRevoked.
func (m *SessionManager) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	if presented == "" {
		return TokenPair{}, ErrMissingToken
	}
	claims, err := m.issuer.VerifyRefreshToken(presented)
	if err != nil {
		return TokenPair{}, err
	}
	user, ok := m.users.GetUser(claims.UserID)
	if !ok {
		return TokenPair{}, ErrSessionRevoked
	}
	next, err := m.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if err := m.store.Swap(ctx, user.ID, presented, next); err != nil {
		return TokenPair{}, err
	}
	access, err := m.issuer.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: next}, nil
}

// Logout clears the stored refresh token unconditionally, ending the session
// server-side regardless of what the client presents next.
func (m *SessionManager) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("userID is required")
	}
	return m.store.Clear(ctx, userID)
}

// ChangePassword verifies the old password before storing the new hash. The
// current refresh token deliberately stays valid; revoking sessions on
// password change is a pending product decision.
func (m *SessionManager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, ok := m.users.GetUser(userID)
	if !ok {
		return ErrUserNotFound
	}
	if err := VerifyPassword(user.PasswordHash, oldPassword); err != nil {
		return ErrInvalidCredentials
	}
	if _, err := m.users.SetUserPassword(userID, newPassword); err != nil {
		return err
	}
	return nil
}

func (m *SessionManager) issuePair(ctx context.Context, user models.User, overwrite bool) (TokenPair, error) {
	refresh, err := m.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if overwrite {
		if err := m.store.Set(ctx, user.ID, refresh); err != nil {
			return TokenPair{}, err
		}
	}
	access, err := m.issuer.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
