package profile

import "time"

// Profile is an identity record. Profiles are created on first invite
// acceptance or by seeding, refreshed on re-onboarding, and never
// deleted through the API.
type Profile struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	DisplayName  *string    `json:"display_name"`
	Phone        *string    `json:"phone"`
	GuardianName *string    `json:"guardian_name"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UpsertInput carries the onboarding payload. Nil fields never overwrite
// stored values.
type UpsertInput struct {
	Email        string
	DisplayName  *string
	Phone        *string
	GuardianName *string
}
