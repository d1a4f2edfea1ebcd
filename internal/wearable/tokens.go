package wearable

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medassist/symptomcheck/internal/shared/errors"
)

// Token holds a user's stored OAuth credentials for one data provider.
type Token struct {
	UserID       string    `json:"-"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the access token needs refreshing.
func (t *Token) Expired() bool {
	return time.Now().After(t.ExpiresAt.Add(-30 * time.Second))
}

// TokenStore persists OAuth tokens, one row per user per provider.
type TokenStore interface {
	Get(ctx context.Context, userID, provider string) (*Token, error)
	Upsert(ctx context.Context, token *Token) error
}

// TokenRepository is the Postgres-backed token store
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Get loads a user's token for a provider
func (r *TokenRepository) Get(ctx context.Context, userID, provider string) (*Token, error) {
	token := &Token{}
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, provider, access_token, refresh_token, expires_at, updated_at
		FROM wearable.tokens
		WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	).Scan(
		&token.UserID, &token.Provider, &token.AccessToken,
		&token.RefreshToken, &token.ExpiresAt, &token.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load wearable token")
	}

	return token, nil
}

// Upsert stores or replaces a user's token for a provider
func (r *TokenRepository) Upsert(ctx context.Context, token *Token) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO wearable.tokens (user_id, provider, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()`,
		token.UserID, token.Provider, token.AccessToken, token.RefreshToken, token.ExpiresAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert wearable token")
	}
	return nil
}
