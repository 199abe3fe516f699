package profile

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for profiles.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new profile store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const profileColumns = `id, email, display_name, phone, guardian_name, created_at, updated_at`

// Upsert inserts a profile for the email or refreshes the existing one.
// The unique constraint on email makes concurrent onboarding for the same
// address converge on a single row; absent fields never clobber stored
// values.
func (s *Store) Upsert(ctx context.Context, in UpsertInput) (*Profile, error) {
	p := &Profile{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO profiles (email, display_name, phone, guardian_name)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE SET
		   display_name = COALESCE(EXCLUDED.display_name, profiles.display_name),
		   phone = COALESCE(EXCLUDED.phone, profiles.phone),
		   guardian_name = COALESCE(EXCLUDED.guardian_name, profiles.guardian_name),
		   updated_at = now()
		 RETURNING `+profileColumns,
		in.Email, in.DisplayName, in.Phone, in.GuardianName,
	).Scan(&p.ID, &p.Email, &p.DisplayName, &p.Phone, &p.GuardianName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upserting profile: %w", err)
	}
	return p, nil
}
