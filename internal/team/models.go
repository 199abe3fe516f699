package team

import (
	"time"

	"github.com/calderhq/rosterd/internal/auth"
)

// Team is created externally (seed or admin) and read-only to the API.
type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a (team, profile, role) relation joined with the profile's
// display fields for listing.
type Member struct {
	ID          int64     `json:"id"`
	Role        auth.Role `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
	DisplayName *string   `json:"display_name"`
	Email       string    `json:"email"`
}

// Invite is a single-use, time-limited credential binding an email to a
// team and role. One invite exists per (team, email); a new invite
// silently replaces the prior one.
type Invite struct {
	ID         int64      `json:"id"`
	TeamID     int64      `json:"team_id"`
	Email      string     `json:"email"`
	Role       auth.Role  `json:"role"`
	Code       string     `json:"code"`
	CreatedBy  *int64     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
}

// InviteMatch is an invite joined with its team's name for redemption.
type InviteMatch struct {
	Invite
	TeamName string `json:"team_name"`
}

// CreateInviteInput carries a manager's invite request.
type CreateInviteInput struct {
	TeamID    int64
	Email     string
	Role      auth.Role
	Code      string
	CreatedBy int64
	ExpiresAt time.Time
}
