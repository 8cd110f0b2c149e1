package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cliptide/internal/auth"
	"cliptide/internal/media"
	"cliptide/internal/models"
	"cliptide/internal/storage"
)

type stubUploader struct {
	enabled bool
	fail    bool
}

func (s stubUploader) Enabled() bool { return s.enabled }

func (s stubUploader) Upload(_ context.Context, kind, localPath, _ string) (media.Asset, error) {
	if s.fail {
		return media.Asset{}, io.ErrUnexpectedEOF
	}
	asset := media.Asset{URL: "https://cdn.example.com/" + kind + "/" + filepath.Base(localPath)}
	if kind == "videos" {
		asset.DurationSeconds = 42
	}
	return asset, nil
}

func newTestHandler(t *testing.T) (*Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	sessions := auth.NewSessionManager(store, issuer, auth.WithRefreshTokenStore(store.RefreshTokens()))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(store, sessions, stubUploader{enabled: true}, logger)
	return handler, store
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return payload
}

func registerAccount(t *testing.T, handler *Handler, username string) models.User {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := map[string]string{
		"fullName": "Test " + username,
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter2!!",
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	avatar, err := writer.CreateFormFile("avatar", "avatar.png")
	if err != nil {
		t.Fatalf("create avatar part: %v", err)
	}
	if _, err := avatar.Write([]byte("png-bytes")); err != nil {
		t.Fatalf("write avatar part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("register status = %d body %s", recorder.Code, recorder.Body.String())
	}

	user, ok := handler.Store.FindUserByLogin(username)
	if !ok {
		t.Fatalf("registered user %s not stored", username)
	}
	return user
}

func loginAccount(t *testing.T, handler *Handler, username string) (auth.TokenPair, *httptest.ResponseRecorder) {
	t.Helper()
	body := strings.NewReader(`{"username":"` + username + `","password":"hunter2!!"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	recorder := httptest.NewRecorder()
	handler.Login(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("login status = %d body %s", recorder.Code, recorder.Body.String())
	}

	payload := decodeEnvelope(t, recorder)
	data, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("login payload missing data: %v", payload)
	}
	pair := auth.TokenPair{
		AccessToken:  data["accessToken"].(string),
		RefreshToken: data["refreshToken"].(string),
	}
	return pair, recorder
}

func withAccessCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	return req
}

func TestRegisterValidation(t *testing.T) {
	handler, _ := newTestHandler(t)

	// Missing avatar file.
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range map[string]string{
		"fullName": "No Avatar",
		"username": "noavatar",
		"email":    "noavatar@example.com",
		"password": "hunter2!!",
	} {
		_ = writer.WriteField(key, value)
	}
	_ = writer.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}

	payload := decodeEnvelope(t, recorder)
	if payload["success"] != false {
		t.Fatalf("expected success false, got %v", payload["success"])
	}
	if _, ok := payload["errors"].([]any); !ok {
		t.Fatalf("expected errors array, got %v", payload["errors"])
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	handler, _ := newTestHandler(t)
	registerAccount(t, handler, "maria")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range map[string]string{
		"fullName": "Dup",
		"username": "maria",
		"email":    "dup@example.com",
		"password": "hunter2!!",
	} {
		_ = writer.WriteField(key, value)
	}
	avatar, _ := writer.CreateFormFile("avatar", "avatar.png")
	_, _ = avatar.Write([]byte("png"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", recorder.Code)
	}
}

func TestLoginSetsCookiesAndEnvelope(t *testing.T) {
	handler, _ := newTestHandler(t)
	registerAccount(t, handler, "maria")

	_, recorder := loginAccount(t, handler, "maria")

	payload := decodeEnvelope(t, recorder)
	if payload["success"] != true {
		t.Fatalf("expected success true, got %v", payload["success"])
	}
	if payload["statusCode"] != float64(http.StatusOK) {
		t.Fatalf("statusCode = %v, want 200", payload["statusCode"])
	}
	data := payload["data"].(map[string]any)
	user := data["user"].(map[string]any)
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatal("login response leaks password hash")
	}
	if _, leaked := user["refreshToken"]; leaked {
		t.Fatal("login response leaks stored refresh token")
	}

	cookies := recorder.Result().Cookies()
	found := map[string]*http.Cookie{}
	for _, cookie := range cookies {
		found[cookie.Name] = cookie
	}
	for _, name := range []string{"accessToken", "refreshToken"} {
		cookie, ok := found[name]
		if !ok {
			t.Fatalf("missing %s cookie", name)
		}
		if !cookie.HttpOnly || !cookie.Secure {
			t.Fatalf("%s cookie must be httpOnly and secure", name)
		}
	}
}

func TestLoginFailures(t *testing.T) {
	handler, _ := newTestHandler(t)
	registerAccount(t, handler, "maria")

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "unknown user", body: `{"username":"ghost","password":"hunter2!!"}`, status: http.StatusNotFound},
		{name: "wrong password", body: `{"username":"maria","password":"wrong-pass"}`, status: http.StatusUnauthorized},
		{name: "no identifier", body: `{"password":"hunter2!!"}`, status: http.StatusBadRequest},
		{name: "no password", body: `{"username":"maria"}`, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tc.body))
			recorder := httptest.NewRecorder()
			handler.Login(recorder, req)
			if recorder.Code != tc.status {
				t.Fatalf("status = %d, want %d", recorder.Code, tc.status)
			}
		})
	}
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	handler, _ := newTestHandler(t)
	registerAccount(t, handler, "maria")
	pair, _ := loginAccount(t, handler, "maria")

	refresh := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "refreshToken", Value: token})
		recorder := httptest.NewRecorder()
		handler.RefreshSession(recorder, req)
		return recorder
	}

	first := refresh(pair.RefreshToken)
	if first.Code != http.StatusOK {
		t.Fatalf("first refresh status = %d body %s", first.Code, first.Body.String())
	}
	data := decodeEnvelope(t, first)["data"].(map[string]any)
	rotated := data["refreshToken"].(string)
	if rotated == pair.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// Replaying the consumed token fails closed.
	if replay := refresh(pair.RefreshToken); replay.Code != http.StatusUnauthorized {
		t.Fatalf("replay status = %d, want 401", replay.Code)
	}

	// The rotated token still works.
	if second := refresh(rotated); second.Code != http.StatusOK {
		t.Fatalf("second refresh status = %d", second.Code)
	}

	// Body fallback works when no cookie is set.
	bodyReq := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(`{"refreshToken":"garbage"}`))
	bodyRec := httptest.NewRecorder()
	handler.RefreshSession(bodyRec, bodyReq)
	if bodyRec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage body refresh status = %d, want 401", bodyRec.Code)
	}

	// Missing token entirely.
	missing := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	missingRec := httptest.NewRecorder()
	handler.RefreshSession(missingRec, missing)
	if missingRec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", missingRec.Code)
	}
}

func TestLogoutClearsSessionAndCookies(t *testing.T) {
	handler, _ := newTestHandler(t)
	user := registerAccount(t, handler, "maria")
	pair, _ := loginAccount(t, handler, "maria")

	req := withAccessCookie(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), pair.AccessToken)
	recorder := httptest.NewRecorder()
	handler.RequireAuth(handler.Logout)(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("logout status = %d body %s", recorder.Code, recorder.Body.String())
	}

	for _, cookie := range recorder.Result().Cookies() {
		if cookie.MaxAge >= 0 && cookie.Value != "" {
			t.Fatalf("cookie %s not cleared", cookie.Name)
		}
	}

	stored, _ := handler.Store.GetUser(user.ID)
	if stored.RefreshToken != "" {
		t.Fatal("stored refresh token survives logout")
	}

	// Any prior refresh token is now revoked.
	refreshReq := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	refreshReq.AddCookie(&http.Cookie{Name: "refreshToken", Value: pair.RefreshToken})
	refreshRec := httptest.NewRecorder()
	handler.RefreshSession(refreshRec, refreshReq)
	if refreshRec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status = %d, want 401", refreshRec.Code)
	}
}

func TestGuardCookiePrecedenceAndBearerFallback(t *testing.T) {
	handler, _ := newTestHandler(t)
	registerAccount(t, handler, "maria")
	pair, _ := loginAccount(t, handler, "maria")

	me := func(mutate func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		mutate(req)
		recorder := httptest.NewRecorder()
		handler.RequireAuth(handler.Account)(recorder, req)
		return recorder
	}

	// Bearer header alone authenticates.
	if rec := me(func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}); rec.Code != http.StatusOK {
		t.Fatalf("bearer auth status = %d", rec.Code)
	}

	// Cookie alone authenticates.
	if rec := me(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "accessToken", Value: pair.AccessToken})
	}); rec.Code != http.StatusOK {
		t.Fatalf("cookie auth status = %d", rec.Code)
	}

	// The cookie wins when both are present: a bad cookie fails the request
	// even with a valid header.
	if rec := me(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "accessToken", Value: "garbage"})
		r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad cookie with good header status = %d, want 401", rec.Code)
	}

	// No credentials at all.
	if rec := me(func(*http.Request) {}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
}

func TestChangePasswordFlow(t *testing.T) {
	handler, _ := newTestHandler(t)
	registerAccount(t, handler, "maria")
	pair, _ := loginAccount(t, handler, "maria")

	change := func(body string) *httptest.ResponseRecorder {
		req := withAccessCookie(httptest.NewRequest(http.MethodPost, "/api/auth/password", strings.NewReader(body)), pair.AccessToken)
		recorder := httptest.NewRecorder()
		handler.RequireAuth(handler.ChangePassword)(recorder, req)
		return recorder
	}

	if rec := change(`{"oldPassword":"wrong","newPassword":"next-pass-1"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("wrong old password status = %d, want 400", rec.Code)
	}
	if rec := change(`{"oldPassword":"hunter2!!","newPassword":"next-pass-1"}`); rec.Code != http.StatusOK {
		t.Fatalf("change password status = %d body %s", rec.Code, rec.Body.String())
	}

	// Old password no longer logs in; the new one does.
	oldReq := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"maria","password":"hunter2!!"}`))
	oldRec := httptest.NewRecorder()
	handler.Login(oldRec, oldReq)
	if oldRec.Code != http.StatusUnauthorized {
		t.Fatalf("old password login status = %d, want 401", oldRec.Code)
	}

	newReq := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"maria","password":"next-pass-1"}`))
	newRec := httptest.NewRecorder()
	handler.Login(newRec, newReq)
	if newRec.Code != http.StatusOK {
		t.Fatalf("new password login status = %d", newRec.Code)
	}
}
