package server

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

	"cliptide/internal/api"
	"cliptide/internal/auth"
	"cliptide/internal/media"
	"cliptide/internal/storage"
)

type stubUploader struct{}

func (stubUploader) Enabled() bool { return true }

func (stubUploader) Upload(_ context.Context, kind, localPath, _ string) (media.Asset, error) {
	return media.Asset{URL: "https://cdn.example.com/" + kind + "/" + filepath.Base(localPath)}, nil
}

func newTestHandler(t *testing.T) (*api.Handler, *storage.Storage) {
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
	return api.NewHandler(store, sessions, stubUploader{}, logger), store
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	handler, _ := newTestHandler(t)
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	srv, err := New(handler, cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return srv
}

func TestCORSMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	policy, err := newCORSPolicy(CORSConfig{AllowedOrigins: []string{"https://app.example.com"}})
	if err != nil {
		t.Fatalf("newCORSPolicy error: %v", err)
	}
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Host = "api.example.com"
	rec := httptest.NewRecorder()

	corsMiddleware(policy, nil, next).ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected next handler to be called")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow origin header: %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected allow credentials header, got %q", got)
	}
}

func TestCORSMiddlewareAllowsPreflight(t *testing.T) {
	policy, err := newCORSPolicy(CORSConfig{AllowedOrigins: []string{"https://app.example.com"}})
	if err != nil {
		t.Fatalf("newCORSPolicy error: %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/videos", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")
	req.Host = "api.example.com"
	rec := httptest.NewRecorder()

	corsMiddleware(policy, nil, http.NotFoundHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Fatal("expected allow methods to be set")
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Fatalf("unexpected allow headers: %q", got)
	}
}

func TestCORSMiddlewareBlocksUnknownOrigin(t *testing.T) {
	policy, err := newCORSPolicy(CORSConfig{})
	if err != nil {
		t.Fatalf("newCORSPolicy error: %v", err)
	}
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Host = "api.example.com"
	rec := httptest.NewRecorder()

	corsMiddleware(policy, nil, next).ServeHTTP(rec, req)

	if called {
		t.Fatal("expected request to be blocked before reaching next handler")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for disallowed origin, got %d", rec.Code)
	}
}

func TestCORSMiddlewareAllowsSameOriginByDefault(t *testing.T) {
	policy, err := newCORSPolicy(CORSConfig{})
	if err != nil {
		t.Fatalf("newCORSPolicy error: %v", err)
	}
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Host = "example.com"
	rec := httptest.NewRecorder()

	corsMiddleware(policy, nil, next).ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected same-origin request to reach next handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected allow origin header for same-origin request, got %q", got)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health check status = %d", rec.Code)
	}
	for header, want := range map[string]string{
		"X-Frame-Options":        defaultFrameOptions,
		"X-Content-Type-Options": defaultContentTypeOptions,
		"Referrer-Policy":        defaultReferrerPolicy,
		"Permissions-Policy":     defaultPermissionsPolicy,
	} {
		if got := rec.Header().Get(header); got != want {
			t.Fatalf("%s = %q, want %q", header, got, want)
		}
	}
	if got := rec.Header().Get("Content-Security-Policy"); !strings.Contains(got, "frame-ancestors 'none'") {
		t.Fatalf("unexpected CSP: %q", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get("X-Request-Id")
	})

	// A generated id is attached when the client sends none.
	rec := httptest.NewRecorder()
	requestIDMiddlewareWithGenerator(logger, func() string { return "generated-id" }, next).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if seen != "generated-id" {
		t.Fatalf("request id = %q, want generated-id", seen)
	}

	// A client-supplied id is preserved.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "client-id")
	rec = httptest.NewRecorder()
	requestIDMiddleware(logger, next).ServeHTTP(rec, req)
	if seen != "client-id" {
		t.Fatalf("request id = %q, want client-id", seen)
	}
}

func TestRateLimiterLoginBudget(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{LoginLimit: 2, LoginWindow: time.Hour})

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.AllowLogin("10.0.0.1")
		if err != nil || !allowed {
			t.Fatalf("attempt %d: allowed=%v err=%v", i+1, allowed, err)
		}
	}
	allowed, retryAfter, err := rl.AllowLogin("10.0.0.1")
	if err != nil {
		t.Fatalf("AllowLogin error: %v", err)
	}
	if allowed {
		t.Fatal("third attempt should be denied")
	}
	if retryAfter <= 0 {
		t.Fatalf("retryAfter = %v, want positive", retryAfter)
	}

	// A different client has its own budget.
	if allowed, _, _ := rl.AllowLogin("10.0.0.2"); !allowed {
		t.Fatal("other client should not be throttled")
	}
}

func TestServerThrottlesLoginAttempts(t *testing.T) {
	srv := newTestServer(t, Config{
		RateLimit: RateLimitConfig{LoginLimit: 1, LoginWindow: time.Hour},
	})

	attempt := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"ghost","password":"nope"}`))
		req.RemoteAddr = "10.0.0.9:4242"
		srv.httpServer.Handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := attempt(); rec.Code == http.StatusTooManyRequests {
		t.Fatalf("first attempt throttled: %d", rec.Code)
	}
	rec := attempt()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt status = %d, want 429", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("throttle response is not the JSON envelope: %v", err)
	}
	if payload["success"] != false {
		t.Fatalf("expected success false, got %v", payload["success"])
	}
}

func TestServerRoutesRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t, Config{})
	h := srv.httpServer.Handler

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range map[string]string{
		"fullName": "Route Test",
		"username": "router",
		"email":    "router@example.com",
		"password": "hunter2!!",
	} {
		_ = writer.WriteField(key, value)
	}
	avatar, _ := writer.CreateFormFile("avatar", "avatar.png")
	_, _ = avatar.Write([]byte("png"))
	_ = writer.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"router","password":"hunter2!!"}`))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header on API responses")
	}

	// Protected routes reject anonymous callers with the envelope.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous /api/auth/me status = %d, want 401", rec.Code)
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	srv := newTestServer(t, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}
}
