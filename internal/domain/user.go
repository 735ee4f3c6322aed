package domain

import "time"

// User represents a directory member keyed by the identity provider's subject id.
type User struct {
	ID         int64
	FirebaseID string
	Email      string
	Name       string
	PhotoURL   string
	Title      string
	CompanyID  *int64
	Division   string
	Unit       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserPatch carries a partial profile update. Nil fields are left untouched.
type UserPatch struct {
	Name      *string
	Title     *string
	PhotoURL  *string
	CompanyID *int64
	Division  *string
	Unit      *string

	// ClearCompany detaches the user from its company. Distinct from a nil
	// CompanyID, which means "no change".
	ClearCompany bool
}
