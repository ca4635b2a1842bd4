package model

import "time"

// CurrentUser is what /auth/me and login answer with
type CurrentUser struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	Role              string      `json:"role"`
	IsAdmin           bool        `json:"isAdmin"`
	Permissions       Permissions `json:"permissions"`
	LabID             *int64      `json:"labId"`
	HasCompletedSetup bool        `json:"hasCompletedSetup"`
	SessionExpiresAt  time.Time   `json:"sessionExpiresAt,omitempty"`
}

// NewCurrentUser projects a user row for API responses.
func NewCurrentUser(u *User) *CurrentUser {
	return &CurrentUser{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		IsAdmin:           u.IsAdmin,
		Permissions:       u.Permissions,
		LabID:             u.LabID,
		HasCompletedSetup: u.HasCompletedSetup,
	}
}
