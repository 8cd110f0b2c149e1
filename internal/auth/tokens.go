package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cliptide/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 10 * 24 * time.Hour
)

// TokenConfig carries the signing secrets and lifetimes for both token kinds.
// Access tokens ride on every request and stay short-lived; refresh tokens are
// rarely transmitted and their exposure is bounded by rotation, so they get a
// separate secret and a longer lifetime.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (c TokenConfig) withDefaults() TokenConfig {
	if c.AccessTTL <= 0 {
		c.AccessTTL = defaultAccessTokenTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = defaultRefreshTokenTTL
	}
	return c
}

// AccessClaims is the wire-visible access token payload.
type AccessClaims struct {
	UserID   string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// RefreshClaims is the wire-visible refresh token payload.
type RefreshClaims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies signed, time-bounded HS256 tokens.
// Verification is pure: signature plus expiry, no I/O.
type TokenIssuer struct {
	cfg TokenConfig
}

// NewTokenIssuer validates the configuration. Both secrets are required and
// must differ so a refresh token can never pass access verification.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, fmt.Errorf("access token secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, fmt.Errorf("refresh token secret required")
	}
	if subtle.ConstantTimeCompare(cfg.AccessSecret, cfg.RefreshSecret) == 1 {
		return nil, fmt.Errorf("access and refresh token secrets must differ")
	}
	return &TokenIssuer{cfg: cfg.withDefaults()}, nil
}

// AccessTTL reports the configured access token lifetime.
func (i *TokenIssuer) AccessTTL() time.Duration { return i.cfg.AccessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

// IssueAccessToken signs an access token carrying the identity's public claim
// set.
func (i *TokenIssuer) IssueAccessToken(user models.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.cfg.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs a refresh token carrying only the identity id. The
// jti makes every issued token unique even within the same second, otherwise
// back-to-back rotations could mint byte-identical tokens and the stored-value
// comparison would stop revoking anything.
func (i *TokenIssuer) IssueRefreshToken(userID string) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.RefreshTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.cfg.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken checks signature and expiry and returns the decoded
// claims.
func (i *TokenIssuer) VerifyAccessToken(token string) (AccessClaims, error) {
	claims := AccessClaims{}
	if err := i.verify(token, &claims, i.cfg.AccessSecret); err != nil {
		return AccessClaims{}, err
	}
	return claims, nil
}

// VerifyRefreshToken checks signature and expiry and returns the decoded
// claims. Equality against the stored token is the SessionManager's job, not
// this one.
func (i *TokenIssuer) VerifyRefreshToken(token string) (RefreshClaims, error) {
	claims := RefreshClaims{}
	if err := i.verify(token, &claims, i.cfg.RefreshSecret); err != nil {
		return RefreshClaims{}, err
	}
	return claims, nil
}

func (i *TokenIssuer) verify(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return ErrMissingToken
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !parsed.Valid {
		return ErrTokenInvalid
	}
	return nil
}
