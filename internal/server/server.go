package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"cliptide/internal/api"
	"cliptide/internal/observability/logging"
)

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type Config struct {
	Addr      string
	TLS       TLSConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Security  SecurityConfig
	Logger    *slog.Logger
}

type Server struct {
	httpServer  *http.Server
	logger      *slog.Logger
	rateLimiter *rateLimiter
	tlsCertFile string
	tlsKeyFile  string
}

func New(handler *api.Handler, cfg Config) (*Server, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handler.Health)

	mux.HandleFunc("/api/auth/register", handler.Register)
	mux.HandleFunc("/api/auth/login", handler.Login)
	mux.HandleFunc("/api/auth/refresh", handler.RefreshSession)
	mux.HandleFunc("/api/auth/logout", handler.RequireAuth(handler.Logout))
	mux.HandleFunc("/api/auth/password", handler.RequireAuth(handler.ChangePassword))
	mux.HandleFunc("/api/auth/me", handler.RequireAuth(handler.Account))
	mux.HandleFunc("/api/auth/me/avatar", handler.RequireAuth(handler.AccountAvatar))
	mux.HandleFunc("/api/auth/me/cover", handler.RequireAuth(handler.AccountCover))

	mux.HandleFunc("/api/videos", handler.Videos)
	mux.HandleFunc("/api/videos/", handler.Videos)
	mux.HandleFunc("/api/comments/", handler.Comments)
	mux.HandleFunc("/api/tweets", handler.Tweets)
	mux.HandleFunc("/api/tweets/", handler.Tweets)
	mux.HandleFunc("/api/likes/", handler.Likes)
	mux.HandleFunc("/api/playlists", handler.Playlists)
	mux.HandleFunc("/api/playlists/", handler.Playlists)
	mux.HandleFunc("/api/channels/", handler.Channels)
	mux.HandleFunc("/api/users/", handler.Users)

	policy, err := newCORSPolicy(cfg.CORS)
	if err != nil {
		return nil, fmt.Errorf("configure CORS: %w", err)
	}

	rl := newRateLimiter(cfg.RateLimit)
	chain := http.Handler(mux)
	chain = rateLimitMiddleware(rl, cfg.Logger, chain)
	chain = corsMiddleware(policy, cfg.Logger, chain)
	chain = securityHeadersMiddleware(cfg.Security, chain)
	chain = logging.RequestLogger(logging.RequestLoggerConfig{Logger: cfg.Logger})(chain)
	chain = requestIDMiddleware(cfg.Logger, chain)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           chain,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv := &Server{
		httpServer:  httpServer,
		logger:      cfg.Logger,
		rateLimiter: rl,
		tlsCertFile: strings.TrimSpace(cfg.TLS.CertFile),
		tlsKeyFile:  strings.TrimSpace(cfg.TLS.KeyFile),
	}

	if srv.tlsCertFile != "" && srv.tlsKeyFile != "" {
		httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return srv, nil
}

func (s *Server) Start() error {
	if s.httpServer == nil {
		return fmt.Errorf("http server is not configured")
	}
	if s.tlsCertFile != "" && s.tlsKeyFile != "" {
		return s.httpServer.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile)
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.rateLimiter.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// rateLimitMiddleware applies the global throughput cap to every request and
// the per-IP credential budget to login and register attempts.
func rateLimitMiddleware(rl *rateLimiter, logger *slog.Logger, next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.AllowRequest() {
			api.WriteError(w, http.StatusTooManyRequests, "global rate limit exceeded")
			return
		}
		if r.Method == http.MethodPost && isCredentialPath(r.URL.Path) {
			ip := extractClientIP(r)
			allowed, retryAfter, err := rl.AllowLogin(ip)
			if err != nil {
				if logger != nil {
					logger.Error("rate limiter failure", "error", err)
				}
				api.WriteError(w, http.StatusServiceUnavailable, "rate limit failure")
				return
			}
			if !allowed {
				if retryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
				}
				api.WriteError(w, http.StatusTooManyRequests, "too many attempts")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isCredentialPath(path string) bool {
	return path == "/api/auth/login" || path == "/api/auth/register"
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}
	return clientIP(r.RemoteAddr)
}

func clientIP(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
