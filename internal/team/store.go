package team

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calderhq/rosterd/internal/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for teams, memberships, and invites.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new team store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetTeam retrieves a team by id, or nil when absent.
func (s *Store) GetTeam(ctx context.Context, id int64) (*Team, error) {
	t := &Team{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM teams WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", err)
	}
	return t, nil
}

// EnsureTeam returns the id of the team with the given name, creating it
// when absent. Used by seeding.
func (s *Store) EnsureTeam(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO teams (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET updated_at = now()
		 RETURNING id`,
		name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensuring team %q: %w", name, err)
	}
	return id, nil
}

// TeamsForProfile lists the teams the profile belongs to with the role
// held in each. Satisfies auth.MembershipSource.
func (s *Store) TeamsForProfile(ctx context.Context, profileID int64) ([]auth.TeamRole, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT team_members.team_id, teams.name, team_members.role
		 FROM team_members
		 JOIN teams ON teams.id = team_members.team_id
		 WHERE team_members.profile_id = $1
		 ORDER BY teams.name`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing teams for profile: %w", err)
	}
	defer rows.Close()

	var teams []auth.TeamRole
	for rows.Next() {
		var t auth.TeamRole
		if err := rows.Scan(&t.TeamID, &t.Name, &t.Role); err != nil {
			return nil, fmt.Errorf("scanning membership row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating membership rows: %w", err)
	}
	return teams, nil
}

// ListMembers returns the team's members joined with profile details.
func (s *Store) ListMembers(ctx context.Context, teamID int64) ([]Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT team_members.id, team_members.role, team_members.joined_at,
		        profiles.display_name, profiles.email
		 FROM team_members
		 JOIN profiles ON profiles.id = team_members.profile_id
		 WHERE team_members.team_id = $1
		 ORDER BY team_members.joined_at`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Role, &m.JoinedAt, &m.DisplayName, &m.Email); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member rows: %w", err)
	}
	return members, nil
}

// UpsertMembership creates the membership or refreshes its role. The
// unique (team_id, profile_id) constraint makes concurrent invite
// redemption converge on a single row.
func (s *Store) UpsertMembership(ctx context.Context, teamID, profileID int64, role auth.Role) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO team_members (team_id, profile_id, role)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (team_id, profile_id) DO UPDATE SET role = EXCLUDED.role`,
		teamID, profileID, role,
	)
	if err != nil {
		return fmt.Errorf("upserting membership: %w", err)
	}
	return nil
}

// UpdateMemberRole sets the role for a member row scoped to the team.
// It reports whether a row was updated.
func (s *Store) UpdateMemberRole(ctx context.Context, teamID, memberID int64, role auth.Role) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE team_members SET role = $1 WHERE id = $2 AND team_id = $3`,
		role, memberID, teamID,
	)
	if err != nil {
		return false, fmt.Errorf("updating member role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteMember removes a member row scoped to the team.
func (s *Store) DeleteMember(ctx context.Context, teamID, memberID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM team_members WHERE id = $1 AND team_id = $2`,
		memberID, teamID,
	)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}
	return nil
}

// MemberEmails returns the emails of the team's members, optionally
// restricted to one role. Used for notifications.
func (s *Store) MemberEmails(ctx context.Context, teamID int64, role *auth.Role) ([]string, error) {
	query := `SELECT profiles.email
	          FROM team_members
	          JOIN profiles ON profiles.id = team_members.profile_id
	          WHERE team_members.team_id = $1`
	args := []any{teamID}
	if role != nil {
		query += ` AND team_members.role = $2`
		args = append(args, *role)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing member emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scanning email row: %w", err)
		}
		if email != "" {
			emails = append(emails, email)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating email rows: %w", err)
	}
	return emails, nil
}

const inviteColumns = `id, team_id, email, role, code, created_by, created_at, expires_at, accepted_at`

// ListInvites returns all invites for the team, newest first.
func (s *Store) ListInvites(ctx context.Context, teamID int64) ([]Invite, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE team_id = $1 ORDER BY created_at DESC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing invites: %w", err)
	}
	defer rows.Close()

	invites := []Invite{}
	for rows.Next() {
		var inv Invite
		if err := rows.Scan(&inv.ID, &inv.TeamID, &inv.Email, &inv.Role, &inv.Code,
			&inv.CreatedBy, &inv.CreatedAt, &inv.ExpiresAt, &inv.AcceptedAt); err != nil {
			return nil, fmt.Errorf("scanning invite row: %w", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invite rows: %w", err)
	}
	return invites, nil
}

// ReplaceInvite inserts an invite for (team, email) or replaces the
// prior one: new code, role and expiry, acceptance cleared.
func (s *Store) ReplaceInvite(ctx context.Context, in CreateInviteInput) (*Invite, error) {
	inv := &Invite{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO invites (team_id, email, role, code, created_by, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (team_id, email) DO UPDATE SET
		   role = EXCLUDED.role,
		   code = EXCLUDED.code,
		   created_by = EXCLUDED.created_by,
		   created_at = now(),
		   expires_at = EXCLUDED.expires_at,
		   accepted_at = NULL
		 RETURNING `+inviteColumns,
		in.TeamID, in.Email, in.Role, in.Code, in.CreatedBy, in.ExpiresAt,
	).Scan(&inv.ID, &inv.TeamID, &inv.Email, &inv.Role, &inv.Code,
		&inv.CreatedBy, &inv.CreatedAt, &inv.ExpiresAt, &inv.AcceptedAt)
	if err != nil {
		return nil, fmt.Errorf("replacing invite: %w", err)
	}
	return inv, nil
}

// FindInvite looks up an invite by redemption credentials, joined with
// the team name, or nil when no invite matches.
func (s *Store) FindInvite(ctx context.Context, email, code string) (*InviteMatch, error) {
	m := &InviteMatch{}
	err := s.pool.QueryRow(ctx,
		`SELECT invites.id, invites.team_id, invites.email, invites.role, invites.code,
		        invites.created_by, invites.created_at, invites.expires_at, invites.accepted_at,
		        teams.name
		 FROM invites
		 JOIN teams ON teams.id = invites.team_id
		 WHERE invites.email = $1 AND invites.code = $2`,
		email, code,
	).Scan(&m.ID, &m.TeamID, &m.Email, &m.Role, &m.Code,
		&m.CreatedBy, &m.CreatedAt, &m.ExpiresAt, &m.AcceptedAt, &m.TeamName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding invite: %w", err)
	}
	return m, nil
}

// MarkInviteAccepted records acceptance. Expired invites are refused at
// redemption but never purged.
func (s *Store) MarkInviteAccepted(ctx context.Context, inviteID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE invites SET accepted_at = $1 WHERE id = $2`,
		at, inviteID,
	)
	if err != nil {
		return fmt.Errorf("marking invite accepted: %w", err)
	}
	return nil
}

// DeleteInvite removes an invite scoped to the team.
func (s *Store) DeleteInvite(ctx context.Context, teamID, inviteID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM invites WHERE id = $1 AND team_id = $2`,
		inviteID, teamID,
	)
	if err != nil {
		return fmt.Errorf("deleting invite: %w", err)
	}
	return nil
}
