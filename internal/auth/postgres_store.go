package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRefreshTokenStore persists refresh-token state to a Postgres table,
// allowing multiple API replicas to share session state. The conditional
// UPDATE in Swap gives the compare-and-swap semantics rotation depends on.
type PostgresRefreshTokenStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRefreshTokenStore opens a Postgres-backed store using the
// provided DSN.
func NewPostgresRefreshTokenStore(dsn string) (*PostgresRefreshTokenStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres refresh token dsn required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres refresh token config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres refresh token pool: %w", err)
	}
	return &PostgresRefreshTokenStore{pool: pool}, nil
}

// Migrate creates the backing table when it does not exist yet.
func (s *PostgresRefreshTokenStore) Migrate(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres refresh token pool not configured")
	}
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS auth_refresh_tokens (
    user_id TEXT PRIMARY KEY,
    token TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)
`)
	return err
}

// Close releases the Postgres connection pool resources.
func (s *PostgresRefreshTokenStore) Close(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Set stores or replaces the identity's refresh token unconditionally.
func (s *PostgresRefreshTokenStore) Set(ctx context.Context, userID, token string) error {
	if s.pool == nil {
		return fmt.Errorf("postgres refresh token pool not configured")
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO auth_refresh_tokens (user_id, token, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token, updated_at = now()
`, userID, token)
	return err
}

// Swap replaces the stored token only when it still equals previous. The row
// predicate makes the read-verify-write sequence a single atomic statement, so
// a stale token loses the race instead of double-rotating.
func (s *PostgresRefreshTokenStore) Swap(ctx context.Context, userID, previous, next string) error {
	if s.pool == nil {
		return fmt.Errorf("postgres refresh token pool not configured")
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE auth_refresh_tokens
SET token = $3, updated_at = now()
WHERE user_id = $1 AND token = $2
`, userID, previous, next)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionRevoked
	}
	return nil
}

// Clear removes the identity's refresh token row.
func (s *PostgresRefreshTokenStore) Clear(ctx context.Context, userID string) error {
	if s.pool == nil {
		return fmt.Errorf("postgres refresh token pool not configured")
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM auth_refresh_tokens WHERE user_id = $1`, userID)
	return err
}

// Ping verifies the backing pool is reachable.
func (s *PostgresRefreshTokenStore) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres refresh token pool not configured")
	}
	return s.pool.Ping(ctx)
}
