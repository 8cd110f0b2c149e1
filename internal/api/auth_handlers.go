package api

import (
	"errors"
	"net/http"
	"strings"

	"cliptide/internal/auth"
	"cliptide/internal/storage"
)

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type accountUpdateRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

type sessionResponse struct {
	User         any    `json:"user,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RequireAuth gates a handler behind access-token authentication. The
// resolved identity is attached to the request context.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.AuthenticateRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r.WithContext(ContextWithUser(r.Context(), user)))
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}

	fullName := strings.TrimSpace(r.FormValue("fullName"))
	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if fullName == "" || username == "" || email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "fullName, username, email, and password are required")
		return
	}
	if len(password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	avatar, present, err := h.formFileAsset(r, "avatar", "avatars")
	if err != nil || !present {
		writeError(w, http.StatusBadRequest, "avatar upload is required")
		return
	}
	cover, _, err := h.formFileAsset(r, "coverImage", "covers")
	if err != nil {
		writeError(w, http.StatusBadRequest, "cover image upload failed")
		return
	}

	user, err := h.Store.CreateUser(storage.CreateUserParams{
		Username:      username,
		Email:         email,
		FullName:      fullName,
		Password:      password,
		AvatarURL:     avatar.URL,
		CoverImageURL: cover.URL,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeData(w, http.StatusCreated, user.Sanitized(), "account registered")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	login := strings.TrimSpace(req.Username)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" {
		writeError(w, http.StatusBadRequest, "username or email is required")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	pair, user, err := h.Sessions.Login(r.Context(), login, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	setAuthCookies(w, pair, h.Sessions.Issuer().AccessTTL(), h.Sessions.Issuer().RefreshTTL())
	writeData(w, http.StatusOK, sessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "logged in")
}

func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	presented := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		presented = cookie.Value
	} else if r.Body != nil {
		var req refreshRequest
		// A body is optional here; the cookie is the primary transport.
		_ = decodeJSON(r, &req)
		presented = req.RefreshToken
	}

	pair, err := h.Sessions.Refresh(r.Context(), presented)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	setAuthCookies(w, pair, h.Sessions.Issuer().AccessTTL(), h.Sessions.Issuer().RefreshTTL())
	writeData(w, http.StatusOK, sessionResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "session refreshed")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	if err := h.Sessions.Logout(r.Context(), user.ID); err != nil {
		writeDomainError(w, err)
		return
	}

	clearAuthCookies(w)
	writeData(w, http.StatusOK, nil, "logged out")
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}

	err := h.Sessions.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, "old password is incorrect")
			return
		}
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, nil, "password changed")
}

// Account serves the authenticated identity: GET returns it, PATCH updates
// profile fields.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeData(w, http.StatusOK, user.Sanitized(), "current account")
	case http.MethodPatch:
		var req accountUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.FullName == nil && req.Email == nil {
			writeError(w, http.StatusBadRequest, "nothing to update")
			return
		}
		updated, err := h.Store.UpdateUser(user.ID, storage.UserUpdate{
			FullName: req.FullName,
			Email:    req.Email,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, updated.Sanitized(), "account updated")
	default:
		methodNotAllowed(w, "GET, PATCH")
	}
}

// AccountAvatar replaces the caller's avatar image.
func (h *Handler) AccountAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceAccountImage(w, r, "avatar", "avatars")
}

// AccountCover replaces the caller's cover image.
func (h *Handler) AccountCover(w http.ResponseWriter, r *http.Request) {
	h.replaceAccountImage(w, r, "coverImage", "covers")
}

func (h *Handler) replaceAccountImage(w http.ResponseWriter, r *http.Request, field, kind string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, "PUT")
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}
	asset, present, err := h.formFileAsset(r, field, kind)
	if err != nil || !present {
		writeError(w, http.StatusBadRequest, field+" upload is required")
		return
	}

	update := storage.UserUpdate{}
	if field == "avatar" {
		update.AvatarURL = &asset.URL
	} else {
		update.CoverImageURL = &asset.URL
	}
	updated, err := h.Store.UpdateUser(user.ID, update)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated.Sanitized(), field+" updated")
}
