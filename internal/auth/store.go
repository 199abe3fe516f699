package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for access tokens.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an access-token store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert persists a freshly-issued token secret for the profile.
func (s *Store) Insert(ctx context.Context, profileID int64, secret string, issuedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access_tokens (profile_id, token, issued_at)
		 VALUES ($1, $2, $3)`,
		profileID, secret, issuedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting access token: %w", err)
	}
	return nil
}

// Lookup returns the token row joined with its owning profile, or nil
// when the secret is unknown or revoked.
func (s *Store) Lookup(ctx context.Context, secret string) (*TokenRecord, error) {
	rec := &TokenRecord{}
	err := s.pool.QueryRow(ctx,
		`SELECT access_tokens.id, access_tokens.profile_id, access_tokens.token,
		        access_tokens.issued_at, access_tokens.last_used_at,
		        profiles.email, profiles.display_name
		 FROM access_tokens
		 JOIN profiles ON profiles.id = access_tokens.profile_id
		 WHERE access_tokens.token = $1`,
		secret,
	).Scan(&rec.ID, &rec.ProfileID, &rec.Secret, &rec.IssuedAt, &rec.LastUsedAt, &rec.Email, &rec.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up access token: %w", err)
	}
	return rec, nil
}

// Touch refreshes last_used_at for the secret.
func (s *Store) Touch(ctx context.Context, secret string, usedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE access_tokens SET last_used_at = $1 WHERE token = $2`,
		usedAt, secret,
	)
	if err != nil {
		return fmt.Errorf("touching access token: %w", err)
	}
	return nil
}
