package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when a password check fails or the
	// stored hash cannot be parsed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when the identity referenced by a login or
	// token no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrMissingToken is returned when a flow that requires a token receives
	// an empty value.
	ErrMissingToken = errors.New("token required")

	// ErrTokenExpired is returned when a token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned for malformed tokens and signature
	// mismatches.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionRevoked is returned when a presented refresh token does not
	// match the value currently stored for the identity. The stale token is
	// permanently unusable; the client must log in again.
	ErrSessionRevoked = errors.New("session revoked")
)
