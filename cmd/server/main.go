// Command server starts the ClipTide API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cliptide/internal/api"
	"cliptide/internal/auth"
	"cliptide/internal/media"
	"cliptide/internal/observability/logging"
	"cliptide/internal/server"
	"cliptide/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	accessSecret := flag.String("access-token-secret", "", "signing secret for access tokens")
	accessExpiry := flag.Duration("access-token-expiry", 0, "access token lifetime (e.g. 15m)")
	refreshSecret := flag.String("refresh-token-secret", "", "signing secret for refresh tokens")
	refreshExpiry := flag.Duration("refresh-token-expiry", 0, "refresh token lifetime (e.g. 240h)")
	sessionStoreDriver := flag.String("session-store", "", "refresh token store driver (storage, memory, or postgres)")
	sessionPostgresDSN := flag.String("session-postgres-dsn", "", "Postgres DSN for the refresh token store")
	corsOrigins := flag.String("cors-origins", "", "comma separated browser origins allowed to call the API")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum credential attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting credential attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed credential throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed credential throttling")
	redisDB := flag.Int("rate-redis-db", 0, "Redis database for distributed credential throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	objectEndpoint := flag.String("object-endpoint", "", "object storage endpoint (e.g. http://127.0.0.1:9000)")
	objectRegion := flag.String("object-region", "", "object storage region")
	objectAccessKey := flag.String("object-access-key", "", "object storage access key")
	objectSecretKey := flag.String("object-secret-key", "", "object storage secret key")
	objectBucket := flag.String("object-bucket", "", "object storage bucket name")
	objectUseSSL := flag.Bool("object-use-ssl", false, "enable TLS for object storage requests")
	objectPrefix := flag.String("object-prefix", "", "object storage key prefix for uploads")
	objectPublicEndpoint := flag.String("object-public-endpoint", "", "public endpoint used for media URLs")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("CLIPTIDE_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("CLIPTIDE_LOG_FORMAT")),
	})

	listenAddr := firstNonEmpty(*addr, os.Getenv("CLIPTIDE_ADDR"), ":8080")
	dataFile := firstNonEmpty(*dataPath, os.Getenv("CLIPTIDE_DATA"), "data/store.json")

	tokenCfg := auth.TokenConfig{
		AccessSecret:  []byte(firstNonEmpty(*accessSecret, os.Getenv("CLIPTIDE_ACCESS_TOKEN_SECRET"))),
		RefreshSecret: []byte(firstNonEmpty(*refreshSecret, os.Getenv("CLIPTIDE_REFRESH_TOKEN_SECRET"))),
		AccessTTL:     resolveDuration(*accessExpiry, "CLIPTIDE_ACCESS_TOKEN_EXPIRY", 0),
		RefreshTTL:    resolveDuration(*refreshExpiry, "CLIPTIDE_REFRESH_TOKEN_EXPIRY", 0),
	}
	issuer, err := auth.NewTokenIssuer(tokenCfg)
	if err != nil {
		logger.Error("failed to configure token issuer", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewStorage(dataFile)
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	sessionDriver := strings.ToLower(firstNonEmpty(*sessionStoreDriver, os.Getenv("CLIPTIDE_SESSION_STORE"), "storage"))
	sessionDSN := firstNonEmpty(*sessionPostgresDSN, os.Getenv("CLIPTIDE_SESSION_POSTGRES_DSN"), os.Getenv("DATABASE_URL"))

	var (
		refreshStore  auth.RefreshTokenStore
		sessionCloser func(context.Context) error
	)
	switch sessionDriver {
	case "storage":
		refreshStore = store.RefreshTokens()
	case "memory":
		refreshStore = auth.NewMemoryRefreshTokenStore()
	case "postgres":
		if sessionDSN == "" {
			logger.Error("postgres session store selected without DSN")
			os.Exit(1)
		}
		pgStore, err := auth.NewPostgresRefreshTokenStore(sessionDSN)
		if err != nil {
			logger.Error("failed to open session store", "error", err)
			os.Exit(1)
		}
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = pgStore.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Error("failed to migrate session store", "error", err)
			os.Exit(1)
		}
		refreshStore = pgStore
		sessionCloser = pgStore.Close
	default:
		logger.Error("unsupported session store driver", "driver", sessionDriver)
		os.Exit(1)
	}

	sessions := auth.NewSessionManager(store, issuer, auth.WithRefreshTokenStore(refreshStore))

	uploads := media.NewStore(media.Config{
		Endpoint:       firstNonEmpty(*objectEndpoint, os.Getenv("CLIPTIDE_OBJECT_ENDPOINT")),
		Region:         firstNonEmpty(*objectRegion, os.Getenv("CLIPTIDE_OBJECT_REGION")),
		AccessKey:      firstNonEmpty(*objectAccessKey, os.Getenv("CLIPTIDE_OBJECT_ACCESS_KEY")),
		SecretKey:      firstNonEmpty(*objectSecretKey, os.Getenv("CLIPTIDE_OBJECT_SECRET_KEY")),
		Bucket:         firstNonEmpty(*objectBucket, os.Getenv("CLIPTIDE_OBJECT_BUCKET")),
		UseSSL:         resolveBool(*objectUseSSL, "CLIPTIDE_OBJECT_USE_SSL"),
		Prefix:         firstNonEmpty(*objectPrefix, os.Getenv("CLIPTIDE_OBJECT_PREFIX")),
		PublicEndpoint: firstNonEmpty(*objectPublicEndpoint, os.Getenv("CLIPTIDE_OBJECT_PUBLIC_ENDPOINT")),
	})
	if !uploads.Enabled() {
		logger.Warn("object storage not configured, uploads are disabled")
	}

	handler := api.NewHandler(store, sessions, uploads, logger)

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("CLIPTIDE_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("CLIPTIDE_TLS_KEY")),
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     resolveFloat(*globalRPS, "CLIPTIDE_RATE_GLOBAL_RPS"),
			GlobalBurst:   resolveInt(*globalBurst, "CLIPTIDE_RATE_GLOBAL_BURST"),
			LoginLimit:    resolveInt(*loginLimit, "CLIPTIDE_RATE_LOGIN_LIMIT"),
			LoginWindow:   resolveDuration(*loginWindow, "CLIPTIDE_RATE_LOGIN_WINDOW", time.Minute),
			RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("CLIPTIDE_RATE_REDIS_ADDR")),
			RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("CLIPTIDE_RATE_REDIS_PASSWORD")),
			RedisDB:       resolveInt(*redisDB, "CLIPTIDE_RATE_REDIS_DB"),
			RedisTimeout:  resolveDuration(*redisTimeout, "CLIPTIDE_RATE_REDIS_TIMEOUT", 2*time.Second),
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("CLIPTIDE_CORS_ORIGINS"))),
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("ClipTide API listening", "addr", listenAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	if sessionCloser != nil {
		if err := sessionCloser(ctx); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}

	logger.Info("server stopped")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}

func resolveBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}
	if env, ok := os.LookupEnv(envKey); ok {
		if value, err := strconv.ParseBool(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return false
}
