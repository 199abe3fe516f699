package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for sessions and RSVPs.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new schedule store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const sessionColumns = `id, team_id, title, description, location, start_at, end_at,
	is_locked, auto_lock_minutes, created_by, created_at, updated_at`

func scanSession(row pgx.Row) (*Session, error) {
	s := &Session{}
	err := row.Scan(&s.ID, &s.TeamID, &s.Title, &s.Description, &s.Location,
		&s.StartAt, &s.EndAt, &s.IsLocked, &s.AutoLockMinutes,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSessions returns the team's sessions ordered by start time.
func (s *Store) ListSessions(ctx context.Context, teamID int64) ([]*Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE team_id = $1 ORDER BY start_at`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// GetSession retrieves a session scoped to the team, or nil when absent
// or owned by another team.
func (s *Store) GetSession(ctx context.Context, teamID, sessionID int64) (*Session, error) {
	sess, err := scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND team_id = $2`,
		sessionID, teamID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return sess, nil
}

// CreateSession inserts a session and returns its id.
func (s *Store) CreateSession(ctx context.Context, in CreateSessionInput) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (team_id, title, description, location, start_at, end_at,
		                       is_locked, auto_lock_minutes, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		in.TeamID, in.Title, in.Description, in.Location, in.StartAt, in.EndAt,
		in.IsLocked, in.AutoLockMinutes, in.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating session: %w", err)
	}
	return id, nil
}

// UpdateSession performs a partial update scoped to the team. It reports
// whether a row was updated.
func (s *Store) UpdateSession(ctx context.Context, teamID, sessionID int64, in UpdateSessionInput) (bool, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Location != nil {
		add("location", *in.Location)
	}
	if in.StartAt != nil {
		add("start_at", *in.StartAt)
	}
	if in.EndAt != nil {
		add("end_at", *in.EndAt)
	}
	if in.IsLocked != nil {
		add("is_locked", *in.IsLocked)
	}
	if in.AutoLockMinutes != nil {
		add("auto_lock_minutes", *in.AutoLockMinutes)
	}
	if len(setClauses) == 0 {
		return false, nil
	}

	setClauses = append(setClauses, "updated_at = now()")
	query := fmt.Sprintf(
		`UPDATE sessions SET %s WHERE id = $%d AND team_id = $%d`,
		strings.Join(setClauses, ", "), argIdx, argIdx+1,
	)
	args = append(args, sessionID, teamID)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteSession removes a session scoped to the team. RSVPs cascade at
// the schema level.
func (s *Store) DeleteSession(ctx context.Context, teamID, sessionID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1 AND team_id = $2`,
		sessionID, teamID,
	)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// ListRSVPs returns the session's RSVPs joined with profile details,
// scoped to the team through the session.
func (s *Store) ListRSVPs(ctx context.Context, teamID, sessionID int64) ([]RSVP, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT rsvps.id, rsvps.session_id, rsvps.profile_id, rsvps.status, rsvps.note,
		        profiles.display_name, profiles.email, rsvps.created_at, rsvps.updated_at
		 FROM rsvps
		 JOIN profiles ON profiles.id = rsvps.profile_id
		 JOIN sessions ON sessions.id = rsvps.session_id
		 WHERE sessions.team_id = $1 AND sessions.id = $2
		 ORDER BY profiles.email`,
		teamID, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing rsvps: %w", err)
	}
	defer rows.Close()

	rsvps := []RSVP{}
	for rows.Next() {
		var r RSVP
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ProfileID, &r.Status, &r.Note,
			&r.DisplayName, &r.Email, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning rsvp row: %w", err)
		}
		rsvps = append(rsvps, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rsvp rows: %w", err)
	}
	return rsvps, nil
}

// UpsertRSVP creates or updates the (session, profile) response and
// reports whether the row was created.
func (s *Store) UpsertRSVP(ctx context.Context, sessionID, profileID int64, status RSVPStatus, note string) (created bool, err error) {
	err = s.pool.QueryRow(ctx,
		`INSERT INTO rsvps (session_id, profile_id, status, note)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, profile_id) DO UPDATE SET
		   status = EXCLUDED.status,
		   note = EXCLUDED.note,
		   updated_at = now()
		 RETURNING (xmax = 0)`,
		sessionID, profileID, status, note,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upserting rsvp: %w", err)
	}
	return created, nil
}

// DeleteRSVP removes the (session, profile) response. Deleting an absent
// row is a no-op.
func (s *Store) DeleteRSVP(ctx context.Context, sessionID, profileID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM rsvps WHERE session_id = $1 AND profile_id = $2`,
		sessionID, profileID,
	)
	if err != nil {
		return fmt.Errorf("deleting rsvp: %w", err)
	}
	return nil
}
