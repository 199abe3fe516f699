// Package auth resolves bearer tokens to authenticated identities and
// decides what those identities may do per team.
package auth

import (
	"errors"
	"fmt"
)

// Role is a team-scoped permission level. No other value is ever stored
// or accepted from input.
type Role string

const (
	RoleManager Role = "manager"
	RoleCoach   Role = "coach"
	RolePlayer  Role = "player"
)

// ParseRole validates an input role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleManager, RoleCoach, RolePlayer:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// TeamRole is one team the profile belongs to, with its role there.
type TeamRole struct {
	TeamID int64  `json:"team_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// Context is the per-request authenticated identity: profile identity,
// team list, and role per team. It is never persisted; it is rebuilt on
// every authenticated request.
type Context struct {
	ProfileID   int64
	Email       string
	DisplayName string
	Teams       []TeamRole
	Memberships map[int64]Role
}

var (
	// ErrNoMembership means the caller has no membership in the target
	// team.
	ErrNoMembership = errors.New("you do not have access to this team")

	// ErrInsufficientRole means the caller is a member but their role
	// does not permit the action. Both failures surface as 403, but
	// they stay distinguishable.
	ErrInsufficientRole = errors.New("insufficient permissions")
)

// TeamAccess returns the caller's role for the team, or ErrNoMembership.
func (c *Context) TeamAccess(teamID int64) (Role, error) {
	role, ok := c.Memberships[teamID]
	if !ok {
		return "", ErrNoMembership
	}
	return role, nil
}

// RequireRole resolves membership and checks role inclusion.
func (c *Context) RequireRole(teamID int64, allowed ...Role) (Role, error) {
	role, err := c.TeamAccess(teamID)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if role == a {
			return role, nil
		}
	}
	return role, ErrInsufficientRole
}

// CanManageSessions reports whether the role permits session create,
// update, delete, and locking.
func CanManageSessions(r Role) bool { return r == RoleManager }

// CanManageMembers reports whether the role permits member and invite
// management.
func CanManageMembers(r Role) bool { return r == RoleManager }

// CanManageRSVPs reports whether the role permits RSVP writes at all;
// ownership rules still restrict non-managers to their own RSVP.
func CanManageRSVPs(r Role) bool {
	return r == RoleManager || r == RoleCoach || r == RolePlayer
}
