package model

import "time"

// Lab is the tenant root; every other row carries its id.
type Lab struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" validate:"required,max=200"`
	Address   string    `json:"address" db:"address" validate:"max=500"`
	Phone     string    `json:"phone" db:"phone" validate:"max=30"`
	Email     string    `json:"email" db:"email" validate:"omitempty,email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// LabSetupRequest completes onboarding for a freshly registered user
type LabSetupRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Address string `json:"address" binding:"max=500"`
	Phone   string `json:"phone" binding:"max=30"`
	Email   string `json:"email" binding:"omitempty,email"`
}

// UpdateLabRequest edits the caller's lab
type UpdateLabRequest struct {
	Name    *string `json:"name" binding:"omitempty,max=200"`
	Address *string `json:"address" binding:"omitempty,max=500"`
	Phone   *string `json:"phone" binding:"omitempty,max=30"`
	Email   *string `json:"email" binding:"omitempty,email"`
}
