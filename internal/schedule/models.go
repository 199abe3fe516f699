package schedule

import (
	"fmt"
	"time"
)

// Session is a scheduled team event with an RSVP window. Created,
// updated, and deleted only by a manager, and only while not locked.
type Session struct {
	ID              int64      `json:"id"`
	TeamID          int64      `json:"team_id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	Location        *string    `json:"location"`
	StartAt         time.Time  `json:"start_at"`
	EndAt           time.Time  `json:"end_at"`
	IsLocked        bool       `json:"is_locked"`
	AutoLockMinutes *int       `json:"auto_lock_minutes"`
	CreatedBy       *int64     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateSessionInput carries a validated session creation request.
type CreateSessionInput struct {
	TeamID          int64
	Title           string
	Description     *string
	Location        *string
	StartAt         time.Time
	EndAt           time.Time
	IsLocked        bool
	AutoLockMinutes *int
	CreatedBy       int64
}

// UpdateSessionInput carries a partial session update; nil fields are
// left unchanged.
type UpdateSessionInput struct {
	Title           *string
	Description     *string
	Location        *string
	StartAt         *time.Time
	EndAt           *time.Time
	IsLocked        *bool
	AutoLockMinutes *int
}

// Empty reports whether the update carries no changes.
func (in UpdateSessionInput) Empty() bool {
	return in.Title == nil && in.Description == nil && in.Location == nil &&
		in.StartAt == nil && in.EndAt == nil && in.IsLocked == nil &&
		in.AutoLockMinutes == nil
}

// RSVPStatus is an attendance response.
type RSVPStatus string

const (
	RSVPYes     RSVPStatus = "yes"
	RSVPNo      RSVPStatus = "no"
	RSVPMaybe   RSVPStatus = "maybe"
	RSVPPending RSVPStatus = "pending"
)

// ParseRSVPStatus validates an input status string.
func ParseRSVPStatus(s string) (RSVPStatus, error) {
	switch RSVPStatus(s) {
	case RSVPYes, RSVPNo, RSVPMaybe, RSVPPending:
		return RSVPStatus(s), nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// RSVP is one profile's attendance response for a session, joined with
// the profile's display fields for listing.
type RSVP struct {
	ID          int64      `json:"id"`
	SessionID   int64      `json:"session_id"`
	ProfileID   int64      `json:"profile_id"`
	Status      RSVPStatus `json:"status"`
	Note        string     `json:"note"`
	DisplayName *string    `json:"display_name"`
	Email       string     `json:"email"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
