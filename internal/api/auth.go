package api

import (
	"context"
	"net/http"
	"strings"

	"cliptide/internal/auth"
	"cliptide/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// ExtractAccessToken pulls the access token from the request. The cookie
// takes precedence over the Authorization header when both are present.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// AuthenticateRequest verifies the access token on the request and resolves
// the caller's identity. It answers who the caller is; resource-level checks
// stay with the handlers.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, error) {
	token := ExtractAccessToken(r)
	if token == "" {
		return models.User{}, auth.ErrMissingToken
	}
	claims, err := h.Sessions.Issuer().VerifyAccessToken(token)
	if err != nil {
		return models.User{}, err
	}
	user, ok := h.Store.GetUser(claims.UserID)
	if !ok {
		return models.User{}, auth.ErrTokenInvalid
	}
	return user, nil
}

func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return models.User{}, false
	}
	return user, true
}

// authenticate resolves the caller on routes that mix public and protected
// methods: it prefers an identity already attached by the guard middleware
// and falls back to verifying the request's own token.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	if user, ok := UserFromContext(r.Context()); ok {
		return user, true
	}
	user, err := h.AuthenticateRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return models.User{}, false
	}
	return user, true
}
